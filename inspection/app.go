package inspection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/compositor"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/editor"
	"github.com/lewtec/vistoria/internal/media"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 64 << 20

// InspectionApp serves the report workflow over HTTP and owns the open
// sessions.
type InspectionApp struct {
	Config   *Config
	Storage  *Storage
	Services *Services

	mu       sync.Mutex
	sessions map[string]*Session
	editors  map[string]*EditorSession
}

// NewServices builds the collaborators described by the config on top of
// storage.
func NewServices(cfg *Config, storage *Storage) *Services {
	poppler := media.NewPoppler()
	poppler.PDFToPPM = cfg.Media.PDFToPPM
	poppler.PDFInfo = cfg.Media.PDFInfo
	if !poppler.Available() {
		log.Printf("warning: %s not found, PDF scans will be replaced by a placeholder page. %s", cfg.Media.PDFToPPM, media.InstallInstructions())
	}
	normalizer := media.NewNormalizer(poppler)
	normalizer.MaxDimension = cfg.Media.MaxDimension
	normalizer.Quality = cfg.Media.JPEGQuality
	normalizer.ScanScale = cfg.Media.ScanScale

	tokens := ShopTokens{Meta: cfg.Meta}
	return &Services{
		Drafts:     storage.Drafts,
		Media:      storage.Media,
		Reports:    storage.Reports,
		Blobs:      storage.Blobs,
		Normalizer: normalizer,
		Compositor: compositor.New(ReportLabels(cfg.Report.Language, cfg.Report), compositor.Options{Compress: cfg.Report.Compress}),
		Uploader:   storage.Outbox,
		Tokens:     tokens,
		Lookup:     &DraftDirectory{Drafts: storage.Drafts, Tokens: tokens},
		Cache:      NewReportCache(),
		Previews:   media.NewPreviewStore(),
		Limits: media.SizeLimits{
			Photo: int64(cfg.Media.PhotoWarnMB * 1000 * 1000),
			Scan:  int64(cfg.Media.ScanWarnMB * 1000 * 1000),
		},
		Findings: cfg.Findings,
	}
}

func NewInspectionApp(cfg *Config, storage *Storage) *InspectionApp {
	SetLanguage(cfg.Report.Language)
	return &InspectionApp{
		Config:   cfg,
		Storage:  storage,
		Services: NewServices(cfg, storage),
		sessions: map[string]*Session{},
		editors:  map[string]*EditorSession{},
	}
}

// CreateDraft stores a new draft for the configured shop.
func (a *InspectionApp) CreateDraft(ctx context.Context, d *domain.ReportDraft) error {
	if d.ShopID == "" {
		d.ShopID = a.Config.Meta.ShopID
	}
	return a.Services.Drafts.Create(ctx, d)
}

// Session returns the open session of a draft, opening it on first use.
func (a *InspectionApp) Session(ctx context.Context, draftID string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[draftID]; ok {
		return s, nil
	}
	s, err := OpenSession(ctx, a.Services, draftID)
	if err != nil {
		return nil, err
	}
	a.sessions[draftID] = s
	return s, nil
}

// SessionForTask returns the session of the draft bound to a task.
func (a *InspectionApp) SessionForTask(ctx context.Context, taskID string) (*Session, error) {
	d, err := a.Services.Drafts.GetByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return a.Session(ctx, d.ID)
}

// Summaries lists the drafts with their counts, once per request.
func (a *InspectionApp) Summaries(ctx context.Context) ([]DraftSummary, error) {
	cache := GetRequestCache(ctx)
	if cache != nil {
		if drafts, ok := cache.GetDrafts(); ok {
			return drafts, nil
		}
	}
	drafts, err := a.Services.Drafts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("while listing drafts: %w", err)
	}
	var ret []DraftSummary
	for _, d := range drafts {
		stats, err := a.Services.Drafts.Stats(ctx, d.ID)
		if err != nil {
			return nil, fmt.Errorf("while counting media of draft %s: %w", d.ID, err)
		}
		ret = append(ret, DraftSummary{Draft: d, Stats: stats})
	}
	if cache != nil {
		cache.SetDrafts(ret)
	}
	return ret, nil
}

func (a *InspectionApp) editorSession(ctx context.Context, s *Session, photoID string) (*EditorSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.editors[photoID]; ok {
		return e, nil
	}
	p, err := s.Photo(photoID)
	if err != nil {
		return nil, err
	}
	e, err := NewEditorSession(a.Config.Editor, s.ID(), p)
	if err != nil {
		return nil, err
	}
	a.editors[photoID] = e
	return e, nil
}

func (a *InspectionApp) closeEditor(photoID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.editors[photoID]; ok {
		e.Close()
		delete(a.editors, photoID)
	}
}

// Close flushes and closes every open session.
func (a *InspectionApp) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for id, s := range a.sessions {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("while closing draft %s: %w", id, err))
		}
	}
	for _, e := range a.editors {
		e.Close()
	}
	a.sessions = map[string]*Session{}
	a.editors = map[string]*EditorSession{}
	return errors.Join(errs...)
}

type categoryOption struct {
	Value string
	Label string
}

func (a *InspectionApp) categories(ctx context.Context) []categoryOption {
	var ret []categoryOption
	for _, c := range domain.ScanCategories {
		label := LocalizeWithContext(ctx, "scan.category."+string(c))
		ret = append(ret, categoryOption{Value: string(c), Label: label})
	}
	return ret
}

func (a *InspectionApp) sessionFromPath(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := a.Session(r.Context(), r.PathValue("draft"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return s, true
}

func redirectToDraft(w http.ResponseWriter, r *http.Request, s *Session) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"draft": s.ID()})
		return
	}
	http.Redirect(w, r, "/drafts/"+s.ID(), http.StatusSeeOther)
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	return header.Filename, data, nil
}

func (a *InspectionApp) renderDraft(w http.ResponseWriter, r *http.Request, s *Session, warnings []string) {
	ctx := r.Context()
	draft := s.Draft()
	reachable, err := s.Reachable(ctx)
	if err != nil {
		log.Printf("error: http: %s", err)
	}
	var last *GeneratedReport
	if rep, err := s.LastReport(ctx); err == nil {
		last = rep
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Printf("error: http: while loading last report: %s", err)
	}
	reports, err := a.Services.Reports.List(ctx, draft.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	title := draft.TaskID
	if draft.RONumber != "" {
		title = "RO " + draft.RONumber
	}
	err = RenderPageWithRequest(r, w, "draft", map[string]any{
		"Title":        title,
		"Draft":        draft,
		"Photos":       draft.Photos,
		"Scans":        draft.Scans,
		"Categories":   a.categories(ctx),
		"FindingsText": draft.Findings,
		"Findings":     s.FindingsStatus(),
		"CanGenerate":  draft.CanGenerate() && !s.Generating(),
		"LastReport":   last,
		"Reports":      reports,
		"Reachable":    reachable,
		"CanLookup":    a.Services.Lookup != nil,
		"Warnings":     warnings,
	})
	if err != nil {
		log.Printf("error: http: while rendering draft page: %s", err)
	}
}

func (a *InspectionApp) GetHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		drafts, err := a.Summaries(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		err = RenderPageWithRequest(r, w, "index", map[string]any{
			"Title":       LocalizeWithContext(r.Context(), "index.heading"),
			"Description": a.Config.Meta.Description,
			"Drafts":      drafts,
		})
		if err != nil {
			log.Printf("error: http: while rendering index: %s", err)
		}
	})

	mux.HandleFunc("GET /help", func(w http.ResponseWriter, r *http.Request) {
		err := RenderPageWithRequest(r, w, "help", map[string]any{
			"Title":       LocalizeWithContext(r.Context(), "help.heading"),
			"Description": a.Config.Meta.Description,
		})
		if err != nil {
			log.Printf("error: http: while rendering help: %s", err)
		}
	})

	mux.HandleFunc("GET /favicon.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		io.WriteString(w, GetFavicon())
	})
	mux.Handle("GET /static/", scriptHandler())

	mux.HandleFunc("GET /preview/{token}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.Services.Previews.Get(r.PathValue("token"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", p.ContentType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		w.Write(p.Data)
	})

	mux.HandleFunc("POST /drafts", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
			return
		}
		d := &domain.ReportDraft{
			TaskID:       strings.TrimSpace(r.FormValue("task_id")),
			RONumber:     strings.TrimSpace(r.FormValue("ro_number")),
			CustomerName: strings.TrimSpace(r.FormValue("customer_name")),
		}
		v := domain.Vehicle{
			Year:  strings.TrimSpace(r.FormValue("vehicle_year")),
			Make:  strings.TrimSpace(r.FormValue("vehicle_make")),
			Model: strings.TrimSpace(r.FormValue("vehicle_model")),
			VIN:   strings.TrimSpace(r.FormValue("vehicle_vin")),
			Plate: strings.TrimSpace(r.FormValue("vehicle_plate")),
		}
		if v != (domain.Vehicle{}) {
			d.Vehicle = &v
		}
		if err := a.CreateDraft(r.Context(), d); err != nil {
			writeError(w, r, err)
			return
		}
		log.Printf("http: created draft %s for task %s", d.ID, d.TaskID)
		http.Redirect(w, r, "/drafts/"+d.ID, http.StatusSeeOther)
	})

	mux.HandleFunc("GET /drafts/{draft}", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		a.renderDraft(w, r, s, nil)
	})

	mux.HandleFunc("POST /drafts/{draft}/repair-order", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		if _, err := s.AttachRepairOrder(r.Context(), r.FormValue("ro_number")); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/photos", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		name, data, err := readUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, warning, err := s.AddPhoto(r.Context(), name, data, time.Now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusCreated, map[string]string{"id": p.ID, "preview": "/preview/" + p.PreviewToken, "warning": warning})
			return
		}
		if warning != "" {
			a.renderDraft(w, r, s, []string{warning})
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/photos/{photo}/delete", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		a.closeEditor(r.PathValue("photo"))
		if err := s.RemovePhoto(r.Context(), r.PathValue("photo")); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/photos/{photo}/move", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		dir := media.Down
		if r.URL.Query().Get("dir") == "up" {
			dir = media.Up
		}
		if err := s.MovePhoto(r.Context(), r.PathValue("photo"), dir); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("PUT /drafts/{draft}/photos/order", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		var ids []string
		if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
			return
		}
		if err := s.ReorderPhotos(r.Context(), ids); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /drafts/{draft}/photos/{photo}/annotation", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		p, err := s.Photo(r.PathValue("photo"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(p.Annotation) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(p.Annotation)
	})

	mux.HandleFunc("PUT /drafts/{draft}/photos/{photo}/annotation", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
			return
		}
		a.closeEditor(r.PathValue("photo"))
		p, err := s.Annotate(r.Context(), r.PathValue("photo"), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": p.ID, "preview": "/preview/" + p.PreviewToken})
	})

	mux.HandleFunc("GET /drafts/{draft}/photos/{photo}/editor", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		e, err := a.editorSession(r.Context(), s, r.PathValue("photo"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		p, _ := s.Photo(e.PhotoID)
		width, height := e.Size()
		var widths []int
		for _, sw := range []canvas.StrokeWidth{canvas.StrokeThin, canvas.StrokeMedium, canvas.StrokeThick} {
			widths = append(widths, int(sw))
		}
		err = RenderPageWithRequest(r, w, "editor", map[string]any{
			"Title":   p.Filename,
			"DraftID": s.ID(),
			"Photo":   p,
			"Tools":   editor.Tools,
			"Palette": canvas.Palette,
			"Widths":  widths,
			"Width":   width,
			"Height":  height,
		})
		if err != nil {
			log.Printf("error: http: while rendering editor: %s", err)
		}
	})

	mux.HandleFunc("POST /drafts/{draft}/photos/{photo}/editor/events", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		e, err := a.editorSession(r.Context(), s, r.PathValue("photo"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		var events []EditorEvent
		if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
			return
		}
		state, err := e.Apply(events)
		if err != nil {
			writeJSON(w, StatusFor(err), map[string]any{"error": err.Error(), "state": state})
			return
		}
		writeJSON(w, http.StatusOK, state)
	})

	mux.HandleFunc("GET /drafts/{draft}/photos/{photo}/editor/frame", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		e, err := a.editorSession(r.Context(), s, r.PathValue("photo"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		frame, err := e.Frame()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(frame)
	})

	mux.HandleFunc("POST /drafts/{draft}/photos/{photo}/editor/save", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		e, err := a.editorSession(r.Context(), s, r.PathValue("photo"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := e.Save()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if _, err := s.SaveAnnotation(r.Context(), e.PhotoID, res.Image, res.Snapshot); err != nil {
			writeError(w, r, err)
			return
		}
		a.closeEditor(e.PhotoID)
		w.Header().Set("Location", "/drafts/"+s.ID())
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /drafts/{draft}/scans", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		name, data, err := readUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		category, err := domain.ParseScanCategory(r.FormValue("category"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		sc, warning, err := s.AddScan(r.Context(), name, data, category)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusCreated, map[string]string{"id": sc.ID, "warning": warning})
			return
		}
		if warning != "" {
			a.renderDraft(w, r, s, []string{warning})
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/scans/{scan}/category", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		category, err := domain.ParseScanCategory(r.FormValue("category"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.SetScanCategory(r.Context(), r.PathValue("scan"), category); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/scans/{scan}/delete", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		if err := s.RemoveScan(r.Context(), r.PathValue("scan")); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/clear", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		if err := s.ClearMedia(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("POST /drafts/{draft}/new", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		if err := s.StartNew(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		redirectToDraft(w, r, s)
	})

	mux.HandleFunc("PUT /drafts/{draft}/findings", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrInvalidInput, err))
			return
		}
		status, err := s.SetFindings(string(body))
		if err != nil {
			writeJSON(w, StatusFor(err), map[string]any{"error": err.Error(), "length": status.Length, "max": status.Max, "near_limit": status.NearLimit})
			return
		}
		writeJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("POST /drafts/{draft}/generate", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		rep, err := s.Generate(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, map[string]any{"report": rep.Report.ID, "pages": rep.Report.Pages, "skipped": rep.Skipped, "url": "/drafts/" + s.ID() + "/report"})
			return
		}
		http.Redirect(w, r, "/drafts/"+s.ID()+"/report", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /drafts/{draft}/report", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		rep, err := s.LastReport(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", ReportFilename(s.Draft(), rep.Report.GeneratedAt)))
		w.Write(rep.Data)
	})

	mux.HandleFunc("POST /drafts/{draft}/upload", func(w http.ResponseWriter, r *http.Request) {
		s, ok := a.sessionFromPath(w, r)
		if !ok {
			return
		}
		var steps []domain.UploadProgress
		res, err := s.Upload(r.Context(), func(p domain.UploadProgress) {
			log.Printf("http: upload of draft %s: %s %d%%", s.ID(), p.Step, p.Percent)
			steps = append(steps, p)
		})
		if err != nil {
			if wantsJSON(r) {
				writeJSON(w, StatusFor(err), map[string]any{"error": err.Error(), "progress": steps})
				return
			}
			writeError(w, r, err)
			return
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, map[string]any{"location": res.Location, "uploaded_at": res.UploadedAt, "progress": steps})
			return
		}
		redirectToDraft(w, r, s)
	})

	var handler http.Handler = mux
	handler = requestCacheMiddleware(handler)
	handler = i18nMiddleware(handler)
	handler = HTTPLogger(handler)
	return handler
}
