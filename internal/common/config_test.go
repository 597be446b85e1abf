package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docfields.yml")
	content := `
imaging:
  max_pdf_pages: 4
engines:
  enabled: [tesseract, openai]
  backend_timeout: 5s
routing:
  accept_threshold: 0.9
  review_threshold: 0.4
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DOCFIELDS_CONFIG", path)
	t.Setenv("MAX_PDF_PAGES", "6")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Imaging.MaxPDFPages != 6 {
		t.Errorf("env should override file, got max pages %d", cfg.Imaging.MaxPDFPages)
	}
	if cfg.Engines.BackendTimeout != 5*time.Second {
		t.Errorf("backend timeout = %v, want 5s", cfg.Engines.BackendTimeout)
	}
	if len(cfg.Engines.Enabled) != 2 || cfg.Engines.Enabled[1] != "openai" {
		t.Errorf("unexpected enabled engines %v", cfg.Engines.Enabled)
	}
	if cfg.Routing.AcceptThreshold != 0.9 {
		t.Errorf("accept threshold = %v", cfg.Routing.AcceptThreshold)
	}
	// untouched defaults survive a partial file
	if cfg.Imaging.TargetDPI != 300 {
		t.Errorf("target dpi default lost: %d", cfg.Imaging.TargetDPI)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("DOCFIELDS_CONFIG", filepath.Join(t.TempDir(), "missing.yml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pages", func(c *Config) { c.Imaging.MaxPDFPages = 0 }},
		{"even block", func(c *Config) { c.Imaging.ThresholdBlockSize = 30 }},
		{"inverted thresholds", func(c *Config) { c.Routing.ReviewThreshold = 0.95 }},
		{"unknown engine", func(c *Config) { c.Engines.Enabled = []string{"abbyy"} }},
		{"negative timeout", func(c *Config) { c.Engines.BackendTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
