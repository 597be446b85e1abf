// Package engine wraps the pluggable OCR engines behind one contract.
//
// Every backend turns a NormalizedImage into text plus a [0,1] confidence.
// Run is the only way callers invoke a backend: it converts errors and panics
// into a failed Result, so a backend never aborts a request.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// Variant names which normalized image a backend consumed.
type Variant string

const (
	VariantRGB       Variant = "rgb"
	VariantGrayscale Variant = "grayscale"
	VariantProcessed Variant = "processed"
	VariantScaled    Variant = "scaled"
)

// Backend is one recognition engine. Implementations are built once per
// process and must be safe for concurrent use.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error)
}

// Result is the outcome of one backend invocation for one request.
type Result struct {
	Engine     string
	Text       string
	Confidence float64
	Success    bool
	Error      string
	Err        error `json:"-"`

	// Estimated is true when Confidence was synthesized from the text rather
	// than reported by the engine.
	Estimated   bool
	Variant     Variant
	Duration    time.Duration
	Diagnostics map[string]string
}

func (r Result) WordCount() int { return ocr.WordCount(r.Text) }

// Failed builds an unsuccessful Result for engine.
func Failed(engine string, err error) Result {
	return Result{Engine: engine, Success: false, Err: err, Error: err.Error()}
}

// Run invokes b and never panics or returns an error: failures are captured
// in the Result. Successful text is cleaned with ocr.Normalize and the
// confidence is clamped to [0,1]; empty text and NaN score 0.
func Run(ctx context.Context, b Backend, img *imaging.NormalizedImage, logger *slog.Logger) (res Result) {
	if logger == nil {
		logger = slog.Default()
	}
	name := b.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Failed(name, common.BackendExecutionError(name, fmt.Errorf("panic: %v", r)))
		}
		res.Engine = name
		res.Duration = time.Since(start)
		if res.Success {
			logger.Info("backend finished",
				"engine", name,
				"confidence", res.Confidence,
				"estimated", res.Estimated,
				"chars", len(res.Text),
				"duration_ms", res.Duration.Milliseconds(),
			)
		} else {
			logger.Warn("backend failed", "engine", name, "error", res.Error, "duration_ms", res.Duration.Milliseconds())
		}
	}()

	if err := ctx.Err(); err != nil {
		return Failed(name, common.BackendExecutionError(name, err))
	}
	out, err := b.Recognize(ctx, img)
	if err != nil {
		return Failed(name, common.BackendExecutionError(name, err))
	}
	out.Success = true
	out.Error, out.Err = "", nil
	out.Text = ocr.Normalize(out.Text)
	switch {
	case out.Text == "", math.IsNaN(out.Confidence), out.Confidence < 0:
		out.Confidence = 0
	case out.Confidence > 1:
		out.Confidence = 1
	}
	return out
}

func encodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("no image variant available")
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
