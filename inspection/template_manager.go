package inspection

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"

	"github.com/abiosoft/mold"
)

// TemplateManager renders pages inside the shared layout using mold
type TemplateManager struct {
	mu     sync.RWMutex
	engine mold.Engine
}

// NewTemplateManager parses every template below root in fsys. The layout
// is root/layout.html and pages are addressed by their path below root.
func NewTemplateManager(fsys fs.FS, root string, funcMap template.FuncMap) (*TemplateManager, error) {
	sub, err := fs.Sub(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("while opening template root %s: %w", root, err)
	}
	engine, err := mold.New(sub, mold.WithLayout("layout.html"), mold.WithFuncMap(funcMap))
	if err != nil {
		return nil, fmt.Errorf("while parsing templates: %w", err)
	}
	return &TemplateManager{engine: engine}, nil
}

// Render renders a page into w. Nothing is written when rendering fails.
func (tm *TemplateManager) Render(w io.Writer, pageName string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var buf bytes.Buffer
	if err := tm.engine.Render(&buf, pageName, data); err != nil {
		return fmt.Errorf("while rendering %s: %w", pageName, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
