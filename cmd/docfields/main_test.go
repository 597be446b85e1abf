package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "docfields.yaml")
	cfg := `engines:
  enabled: []
  tesseract:
    binary: /nonexistent/tesseract
log:
  level: error
`
	if err := os.WriteFile(p, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCFIELDS_CONFIG", "")
	t.Setenv("TESSERACT_BIN", "")
	t.Setenv("OCR_ENGINES", "")
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusWithNoBackends(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "status", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "no OCR backend") {
		t.Fatalf("err = %v", err)
	}
	var rep struct {
		Backends []struct {
			Engine    string `json:"engine"`
			Available bool   `json:"available"`
			Fallback  bool   `json:"fallback"`
		} `json:"backends"`
		Available int `json:"available"`
		Total     int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("status output %q: %v", out, err)
	}
	if rep.Total != 1 || rep.Available != 0 || !rep.Backends[0].Fallback {
		t.Fatalf("report = %+v", rep)
	}
}

func TestExtractRejectsBadKind(t *testing.T) {
	cfg := writeConfig(t)
	doc := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(doc, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "extract", doc, "--kind", "docx", "--config", cfg); err == nil || !strings.Contains(err.Error(), "--kind") {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractUnreadable(t *testing.T) {
	cfg := writeConfig(t)
	doc := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(doc, []byte("definitely not a png"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "extract", doc, "--config", cfg); err == nil || !strings.Contains(err.Error(), "UNREADABLE_SOURCE") {
		t.Fatalf("err = %v", err)
	}
}
