package orchestrator

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
)

func ok(name string, conf float64, text string) engine.Result {
	return engine.Result{Engine: name, Text: text, Confidence: conf, Success: true}
}

func failed(name string) engine.Result {
	return engine.Failed(name, errors.New("boom"))
}

func TestMergeEmpty(t *testing.T) {
	for name, in := range map[string][]engine.Result{
		"nil":        nil,
		"all failed": {failed("a"), failed("b")},
		"blank text": {ok("a", 0.9, "   \n\t")},
	} {
		t.Run(name, func(t *testing.T) {
			m := Merge(in)
			if m.SelectedEngine != constants.EngineNone || m.SelectedText != "" || m.SelectedConfidence != 0 {
				t.Fatalf("Merge() = %+v", m)
			}
			if !m.NoUsableText() || m.Rationale == "" {
				t.Fatalf("expected explicit none state with rationale, got %+v", m)
			}
		})
	}
}

func TestMergeMonotonic(t *testing.T) {
	// a clear confidence winner beats any amount of text
	in := []engine.Result{
		ok("verbose", 0.60, "lots of words in this very long and noisy transcription of the page"),
		ok("sharp", 0.75, "Name RAVI"),
		ok("middling", 0.64, "some words here"),
	}
	m := Merge(in)
	if m.SelectedEngine != "sharp" {
		t.Fatalf("selected %s, want sharp; rationale: %s", m.SelectedEngine, m.Rationale)
	}
	if len(m.Candidates) != 3 || m.Candidates[0].Engine != "sharp" {
		t.Fatalf("candidates not ranked: %+v", m.Candidates)
	}
}

func TestMergeTieWindowPrefersWordCount(t *testing.T) {
	in := []engine.Result{
		ok("terse", 0.90, "Name RAVI"),
		ok("complete", 0.84, "Name RAVI KUMAR DOB 12-04-1999"),
		ok("outside", 0.70, "Name RAVI KUMAR DOB 12-04-1999 Address 12 MG Road Bengaluru"),
	}
	m := Merge(in)
	if m.SelectedEngine != "complete" || m.SelectedConfidence != 0.84 {
		t.Fatalf("selected %s (%v), want complete; rationale: %s", m.SelectedEngine, m.SelectedConfidence, m.Rationale)
	}
	if m.SelectedText != "Name RAVI KUMAR DOB 12-04-1999" {
		t.Fatalf("text = %q", m.SelectedText)
	}
}

func TestMergeDeterministic(t *testing.T) {
	in := []engine.Result{
		ok("b", 0.8, "same words here"),
		ok("a", 0.8, "same words here"),
		failed("c"),
		ok("d", 0.75, "one two three"),
	}
	first := Merge(in)
	for i := 0; i < 20; i++ {
		if got := Merge(in); !reflect.DeepEqual(got, first) {
			t.Fatalf("Merge not idempotent:\n%+v\n%+v", got, first)
		}
	}
	// exact ties resolve by engine name, independent of input order
	if first.SelectedEngine != "a" {
		t.Fatalf("selected %s, want a", first.SelectedEngine)
	}
	swapped := []engine.Result{in[1], in[0], in[2], in[3]}
	if got := Merge(swapped); got.SelectedEngine != first.SelectedEngine {
		t.Fatalf("selection depends on input order: %s vs %s", got.SelectedEngine, first.SelectedEngine)
	}
}

func TestMergeNonEmptyIffUsable(t *testing.T) {
	cases := [][]engine.Result{
		{failed("a")},
		{failed("a"), ok("b", 0, "x")},
		{ok("a", 0.3, "")},
		{ok("a", 0.3, "text")},
	}
	for i, in := range cases {
		usable := false
		for _, r := range in {
			if r.Success && r.Text != "" {
				usable = true
			}
		}
		if m := Merge(in); (m.SelectedText != "") != usable {
			t.Errorf("case %d: selected %q, usable=%v", i, m.SelectedText, usable)
		}
	}
}

type stubBackend struct {
	name  string
	res   engine.Result
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Recognize(ctx context.Context, _ *imaging.NormalizedImage) (engine.Result, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return engine.Result{}, ctx.Err()
		}
	}
	return s.res, s.err
}

func img() *imaging.NormalizedImage {
	g := image.NewGray(image.Rect(0, 0, 4, 4))
	return &imaging.NormalizedImage{Grayscale: g, Processed: g, Scaled: g, RGB: image.NewRGBA(g.Rect)}
}

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func registry(fallback engine.Backend, backends ...engine.Backend) *engine.Registry {
	var cands []engine.Candidate
	for _, b := range backends {
		cands = append(cands, engine.Candidate{Name: b.Name(), Backend: b})
	}
	fb := engine.Candidate{Name: constants.EngineFallback, Err: errors.New("unavailable")}
	if fallback != nil {
		fb = engine.Candidate{Name: fallback.Name(), Backend: fallback}
	}
	return engine.NewRegistryFrom(cands, fb)
}

func TestOrchestratorSkipsFallbackWhenPrimarySucceeds(t *testing.T) {
	fb := &stubBackend{name: constants.EngineFallback, res: engine.Result{Text: "fallback"}}
	a := &stubBackend{name: "a", res: engine.Result{Text: "Name RAVI", Confidence: 0.7}}
	b := &stubBackend{name: "b", err: errors.New("quota")}
	o := New(registry(fb, a, b), quiet())

	out := o.Run(context.Background(), img())
	if out.FallbackUsed || fb.calls.Load() != 0 {
		t.Fatal("fallback must not run when a primary backend produced text")
	}
	if out.Merged.SelectedEngine != "a" {
		t.Fatalf("selected %s", out.Merged.SelectedEngine)
	}
	if got := out.EnginesAttempted(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("attempted = %v", got)
	}
	if got := out.EnginesUsed(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("used = %v", got)
	}
}

func TestOrchestratorRunsFallback(t *testing.T) {
	fb := &stubBackend{name: constants.EngineFallback, res: engine.Result{Text: "Name RAVI", Confidence: 0.4}}
	a := &stubBackend{name: "a", res: engine.Result{Text: "  "}}
	o := New(registry(fb, a), quiet(), WithParallel(false))

	out := o.Run(context.Background(), img())
	if !out.FallbackUsed || out.Merged.SelectedEngine != constants.EngineFallback {
		t.Fatalf("expected fallback selection, got %+v", out.Merged)
	}
	if got := out.EnginesAttempted(); !reflect.DeepEqual(got, []string{"a", constants.EngineFallback}) {
		t.Fatalf("attempted = %v", got)
	}
}

func TestOrchestratorNothingAvailable(t *testing.T) {
	out := New(registry(nil), quiet()).Run(context.Background(), img())
	if out.Merged.SelectedEngine != constants.EngineNone || len(out.EnginesUsed()) != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.EnginesUsed() == nil {
		t.Fatal("engines used must be an empty list, not nil")
	}
}

func TestOrchestratorBackendTimeout(t *testing.T) {
	slow := &stubBackend{name: "slow", delay: time.Second, res: engine.Result{Text: "late"}}
	fast := &stubBackend{name: "fast", res: engine.Result{Text: "Name RAVI", Confidence: 0.5}}
	o := New(registry(nil, slow, fast), quiet(), WithBackendTimeout(20*time.Millisecond))

	start := time.Now()
	out := o.Run(context.Background(), img())
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("orchestrator waited for the hung backend")
	}
	if out.Results[0].Success {
		t.Fatal("slow backend should have failed on deadline")
	}
	if out.Merged.SelectedEngine != "fast" {
		t.Fatalf("selected %s", out.Merged.SelectedEngine)
	}
}
