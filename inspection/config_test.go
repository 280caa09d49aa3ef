package inspection

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		p := writeConfig(t, "config.yaml", `
meta:
  shop_id: shop-1
  token: secret
report:
  language: pt-BR
  title: Laudo
media:
  max_dimension: 1600
findings:
  autosave_debounce: 1s
`)
		cfg, err := LoadConfig(p)
		require.NoError(t, err)
		assert.Equal(t, "shop-1", cfg.Meta.ShopID)
		assert.Equal(t, "secret", cfg.Meta.Token)
		assert.Equal(t, "pt-BR", cfg.Report.Language)
		assert.Equal(t, "Laudo", cfg.Report.Title)
		assert.True(t, cfg.Report.Compress)
		assert.Equal(t, 1600, cfg.Media.MaxDimension)
		assert.Equal(t, 85, cfg.Media.JPEGQuality)
		assert.Equal(t, time.Second, cfg.Findings.Debounce())
		assert.Equal(t, "vistoria.db", cfg.Storage.Database)
	})

	t.Run("toml", func(t *testing.T) {
		p := writeConfig(t, "config.toml", `
[meta]
shop_id = "shop-2"

[report]
compress = false

[editor]
default_width = 6
`)
		cfg, err := LoadConfig(p)
		require.NoError(t, err)
		assert.Equal(t, "shop-2", cfg.Meta.ShopID)
		assert.False(t, cfg.Report.Compress)
		assert.Equal(t, 6, cfg.Editor.DefaultWidth)
		assert.Equal(t, 800, cfg.Editor.CanvasWidth)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		p := writeConfig(t, "config.yaml", "report:\n  language: fr\n")
		_, err := LoadConfig(p)
		assert.ErrorContains(t, err, "report language")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("sample config loads", func(t *testing.T) {
		p := writeConfig(t, "config.yaml", SampleConfig)
		cfg, err := LoadConfig(p)
		require.NoError(t, err)
		var fromFile Config
		require.NoError(t, yaml.Unmarshal([]byte(SampleConfig), &fromFile))
		assert.Equal(t, DefaultConfig().Media, cfg.Media)
		assert.Equal(t, DefaultConfig().Editor, fromFile.Editor)
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"VISTORIA_SHOP_ID":  "env-shop",
		"VISTORIA_LANGUAGE": "pt-BR",
		"VISTORIA_ADDR":     "127.0.0.1:9000",
		"VISTORIA_COMPRESS": "false",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "env-shop", cfg.Meta.ShopID)
	assert.Equal(t, "pt-BR", cfg.Report.Language)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.False(t, cfg.Report.Compress)
	assert.Equal(t, "vistoria.db", cfg.Storage.Database)

	cfg = DefaultConfig()
	cfg.ApplyEnv(func(k string) string {
		if k == "VISTORIA_COMPRESS" {
			return "maybe"
		}
		return ""
	})
	assert.True(t, cfg.Report.Compress)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"quality", func(c *Config) { c.Media.JPEGQuality = 0 }},
		{"dimension", func(c *Config) { c.Media.MaxDimension = -1 }},
		{"scale", func(c *Config) { c.Media.ScanScale = 0 }},
		{"warnings", func(c *Config) { c.Media.ScanWarnMB = 0 }},
		{"canvas", func(c *Config) { c.Editor.CanvasHeight = 0 }},
		{"history", func(c *Config) { c.Editor.HistoryDepth = 0 }},
		{"color", func(c *Config) { c.Editor.DefaultColor = "#000000" }},
		{"width", func(c *Config) { c.Editor.DefaultWidth = 3 }},
		{"findings", func(c *Config) { c.Findings.MaxLength = 0 }},
		{"debounce", func(c *Config) { c.Findings.AutosaveDebounce = "soon" }},
		{"storage", func(c *Config) { c.Storage.Outbox = "" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
