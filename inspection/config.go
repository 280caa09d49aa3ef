package inspection

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Languages the report and the web pages can be rendered in.
var Languages = []string{"en", "pt-BR"}

type Config struct {
	Meta     MetaConfig     `yaml:"meta" toml:"meta"`
	Report   ReportConfig   `yaml:"report" toml:"report"`
	Media    MediaConfig    `yaml:"media" toml:"media"`
	Editor   EditorConfig   `yaml:"editor" toml:"editor"`
	Findings FindingsConfig `yaml:"findings" toml:"findings"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
}

type MetaConfig struct {
	Description string `yaml:"description" toml:"description"`
	ShopID      string `yaml:"shop_id" toml:"shop_id"`
	ShopName    string `yaml:"shop_name" toml:"shop_name"`
	// Token marks the shop as connected. Only its presence is checked.
	Token string `yaml:"token" toml:"token"`
}

type ReportConfig struct {
	// Title and Disclaimer replace the localized defaults when set.
	Title      string `yaml:"title" toml:"title"`
	Disclaimer string `yaml:"disclaimer" toml:"disclaimer"`
	Language   string `yaml:"language" toml:"language"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

type MediaConfig struct {
	MaxDimension int     `yaml:"max_dimension" toml:"max_dimension"`
	JPEGQuality  int     `yaml:"jpeg_quality" toml:"jpeg_quality"`
	ScanScale    float64 `yaml:"scan_scale" toml:"scan_scale"`
	PhotoWarnMB  float64 `yaml:"photo_warn_mb" toml:"photo_warn_mb"`
	ScanWarnMB   float64 `yaml:"scan_warn_mb" toml:"scan_warn_mb"`
	PDFToPPM     string  `yaml:"pdftoppm" toml:"pdftoppm"`
	PDFInfo      string  `yaml:"pdfinfo" toml:"pdfinfo"`
}

type EditorConfig struct {
	CanvasWidth  int    `yaml:"canvas_width" toml:"canvas_width"`
	CanvasHeight int    `yaml:"canvas_height" toml:"canvas_height"`
	HistoryDepth int    `yaml:"history_depth" toml:"history_depth"`
	DefaultColor string `yaml:"default_color" toml:"default_color"`
	DefaultWidth int    `yaml:"default_width" toml:"default_width"`
}

type FindingsConfig struct {
	MaxLength        int    `yaml:"max_length" toml:"max_length"`
	AutosaveDebounce string `yaml:"autosave_debounce" toml:"autosave_debounce"`
}

// Debounce returns the parsed autosave delay.
func (f FindingsConfig) Debounce() time.Duration {
	d, err := time.ParseDuration(f.AutosaveDebounce)
	if err != nil {
		return DefaultAutosaveDebounce
	}
	return d
}

type StorageConfig struct {
	Database string `yaml:"database" toml:"database"`
	Blobs    string `yaml:"blobs" toml:"blobs"`
	Outbox   string `yaml:"outbox" toml:"outbox"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// DefaultConfig returns the configuration used for every key a file leaves
// out.
func DefaultConfig() *Config {
	return &Config{
		Meta: MetaConfig{
			Description: "Vehicle inspection reports",
			ShopID:      "default",
		},
		Report: ReportConfig{
			Language: "en",
			Compress: true,
		},
		Media: MediaConfig{
			MaxDimension: 2000,
			JPEGQuality:  85,
			ScanScale:    2.0,
			PhotoWarnMB:  10,
			ScanWarnMB:   25,
			PDFToPPM:     "pdftoppm",
			PDFInfo:      "pdfinfo",
		},
		Editor: EditorConfig{
			CanvasWidth:  800,
			CanvasHeight: 600,
			HistoryDepth: 50,
			DefaultColor: string(canvas.ColorUrgent),
			DefaultWidth: int(canvas.StrokeMedium),
		},
		Findings: FindingsConfig{
			MaxLength:        DefaultFindingsMaxLength,
			AutosaveDebounce: DefaultAutosaveDebounce.String(),
		},
		Storage: StorageConfig{
			Database: "vistoria.db",
			Blobs:    "blobs",
			Outbox:   "outbox",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	ret := DefaultConfig()
	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		err = toml.Unmarshal(data, ret)
	} else {
		err = yaml.Unmarshal(data, ret)
	}
	if err != nil {
		return nil, fmt.Errorf("while parsing config %s: %w", filename, err)
	}
	ret.ApplyEnv(os.Getenv)
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("while validating config %s: %w", filename, err)
	}
	return ret, nil
}

// ApplyEnv overrides settings from VISTORIA_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	str := map[string]*string{
		"VISTORIA_SHOP_ID":  &c.Meta.ShopID,
		"VISTORIA_TOKEN":    &c.Meta.Token,
		"VISTORIA_LANGUAGE": &c.Report.Language,
		"VISTORIA_DATABASE": &c.Storage.Database,
		"VISTORIA_BLOBS":    &c.Storage.Blobs,
		"VISTORIA_OUTBOX":   &c.Storage.Outbox,
		"VISTORIA_ADDR":     &c.Server.Addr,
		"VISTORIA_PDFTOPPM": &c.Media.PDFToPPM,
		"VISTORIA_PDFINFO":  &c.Media.PDFInfo,
	}
	for key, field := range str {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
	if v := getenv("VISTORIA_COMPRESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Report.Compress = b
		}
	}
}

func (c *Config) Validate() error {
	if !supportedLanguage(c.Report.Language) {
		return fmt.Errorf("report language %q is not one of %s", c.Report.Language, strings.Join(Languages, ", "))
	}
	if c.Media.MaxDimension <= 0 {
		return fmt.Errorf("media max_dimension must be positive")
	}
	if c.Media.JPEGQuality < 1 || c.Media.JPEGQuality > 100 {
		return fmt.Errorf("media jpeg_quality must be between 1 and 100")
	}
	if c.Media.ScanScale <= 0 {
		return fmt.Errorf("media scan_scale must be positive")
	}
	if c.Media.PhotoWarnMB <= 0 || c.Media.ScanWarnMB <= 0 {
		return fmt.Errorf("media size warnings must be positive")
	}
	if c.Editor.CanvasWidth <= 0 || c.Editor.CanvasHeight <= 0 {
		return fmt.Errorf("editor canvas size must be positive")
	}
	if c.Editor.HistoryDepth <= 0 {
		return fmt.Errorf("editor history_depth must be positive")
	}
	if !canvas.Color(c.Editor.DefaultColor).Valid() {
		return fmt.Errorf("editor default_color %q is not in the palette", c.Editor.DefaultColor)
	}
	if !canvas.StrokeWidth(c.Editor.DefaultWidth).Valid() {
		return fmt.Errorf("editor default_width %d is not one of 2, 4 or 6", c.Editor.DefaultWidth)
	}
	if c.Findings.MaxLength <= 0 {
		return fmt.Errorf("findings max_length must be positive")
	}
	if d, err := time.ParseDuration(c.Findings.AutosaveDebounce); err != nil || d <= 0 {
		return fmt.Errorf("findings autosave_debounce %q is not a positive duration", c.Findings.AutosaveDebounce)
	}
	if c.Storage.Database == "" || c.Storage.Blobs == "" || c.Storage.Outbox == "" {
		return fmt.Errorf("storage database, blobs and outbox are required")
	}
	return nil
}

func supportedLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// SampleConfig is the file written by the init command.
const SampleConfig = `meta:
  description: Vehicle inspection reports
  shop_id: default
  shop_name: ""
  # token: set once the shop is connected

report:
  # title: Inspection Report
  # disclaimer: This report is provided for informational purposes only.
  language: en
  compress: true

media:
  max_dimension: 2000
  jpeg_quality: 85
  scan_scale: 2.0
  photo_warn_mb: 10
  scan_warn_mb: 25
  pdftoppm: pdftoppm
  pdfinfo: pdfinfo

editor:
  canvas_width: 800
  canvas_height: 600
  history_depth: 50
  default_color: "#EF4444"
  default_width: 4

findings:
  max_length: 5000
  autosave_debounce: 500ms

storage:
  database: vistoria.db
  blobs: blobs
  outbox: outbox

server:
  addr: ":8080"
`
