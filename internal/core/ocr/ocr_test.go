package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	in := "Name:\tRAVI   KUMAR\r\n-----\r\n\r\n\r\n\r\nDOB: １２-０４-１９９９  \n"
	got := Normalize(in)
	want := "Name: RAVI KUMAR\n\nDOB: 12-04-1999"
	if got != want {
		t.Fatalf("Normalize() = %q, want %q", got, want)
	}
	if Normalize("") != "" {
		t.Fatal("empty input should stay empty")
	}
}

func TestEstimateConfidence(t *testing.T) {
	if got := EstimateConfidence("   "); got != 0 {
		t.Fatalf("blank text should score 0, got %v", got)
	}
	clean := "GOVERNMENT OF INDIA\nName: Ravi Kumar\nDOB: 12-04-1999\nAadhaar No: 2345 6789 0123\nAddress: 12 MG Road, Bengaluru 560001"
	garbage := "#~^^ *{}} ¤¤ §§ ~~~ ^^^ ¦¦ {{}} ##"
	c1, c2 := EstimateConfidence(clean), EstimateConfidence(garbage)
	if c1 <= c2 {
		t.Fatalf("clean text should outscore garbage: %v <= %v", c1, c2)
	}
	for _, c := range []float64{c1, c2} {
		if c < 0 || c > MaxEstimatedConfidence {
			t.Fatalf("estimate out of range: %v", c)
		}
	}
}

func TestBlendConfidence(t *testing.T) {
	txt := "Name: Ravi Kumar"
	if got, want := BlendConfidence(0, txt), EstimateConfidence(txt); got != want {
		t.Fatalf("zero engine score should fall back to heuristic: %v != %v", got, want)
	}
	got := BlendConfidence(0.9, txt)
	want := 0.7*0.9 + 0.3*EstimateConfidence(txt)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("BlendConfidence = %v, want %v", got, want)
	}
	if BlendConfidence(5, txt) > 1 {
		t.Fatal("blend must stay within [0,1]")
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount(" a  b\nc\t"); got != 3 {
		t.Fatalf("WordCount = %d, want 3", got)
	}
}

func TestIsHEIC(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	if !IsHEIC(heic) {
		t.Fatal("expected heic brand to be detected")
	}
	if IsHEIC([]byte("\x89PNG\r\n\x1a\n0000")) {
		t.Fatal("png must not be detected as heic")
	}
}

type writeRunner struct {
	calls []string
	fail  bool
}

func (w *writeRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	w.calls = append(w.calls, name+" "+strings.Join(args, " "))
	if w.fail {
		return nil, []byte("no delegate"), errors.New("exit status 1")
	}
	out := args[len(args)-1]
	return nil, nil, os.WriteFile(out, []byte("png-bytes"), 0o600)
}

func TestConvertHEICToPNG(t *testing.T) {
	r := &writeRunner{}
	out, _, err := ConvertHEICToPNG(context.Background(), r, nil, "magick", []byte("heic"))
	if err != nil {
		t.Fatalf("ConvertHEICToPNG() error = %v", err)
	}
	if string(out) != "png-bytes" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(r.calls) != 1 || !strings.HasPrefix(r.calls[0], "magick ") {
		t.Fatalf("unexpected calls %v", r.calls)
	}

	r = &writeRunner{fail: true}
	if _, warns, err := ConvertHEICToPNG(context.Background(), r, nil, "heif-convert", []byte("heic")); err == nil || len(warns) != 1 {
		t.Fatalf("expected failure with stderr warning, got err=%v warns=%v", err, warns)
	}
	if _, _, err := ConvertHEICToPNG(context.Background(), &writeRunner{}, nil, "gimp", []byte("heic")); err == nil {
		t.Fatal("unknown converter should fail")
	}
}
