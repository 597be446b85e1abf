// Package orchestrator runs the available backends for one request and merges
// their outputs.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
)

// Outcome is every backend result for a request plus the merge over them.
type Outcome struct {
	Results      []engine.Result
	Merged       MergedResult
	FallbackUsed bool
}

// EnginesAttempted lists every backend invoked, in invocation order.
func (o Outcome) EnginesAttempted() []string {
	names := make([]string, 0, len(o.Results))
	for _, r := range o.Results {
		names = append(names, r.Engine)
	}
	return names
}

// EnginesUsed lists backends that returned usable (successful, non-blank) text.
func (o Outcome) EnginesUsed() []string {
	names := []string{}
	for _, r := range o.Results {
		if r.Success && strings.TrimSpace(r.Text) != "" {
			names = append(names, r.Engine)
		}
	}
	return names
}

type Orchestrator struct {
	registry *engine.Registry
	timeout  time.Duration
	parallel bool
	logger   *slog.Logger
}

type Option func(*Orchestrator)

// WithBackendTimeout bounds each backend call; 0 disables the deadline.
func WithBackendTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithParallel runs backends concurrently (default) or one after another.
func WithParallel(p bool) Option {
	return func(o *Orchestrator) { o.parallel = p }
}

func New(registry *engine.Registry, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{registry: registry, timeout: 60 * time.Second, parallel: true, logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run invokes every active backend, merges, and attempts the fallback when no
// primary backend produced usable text. It never returns an error: an empty
// outcome is the explicit "none" merge.
func (o *Orchestrator) Run(ctx context.Context, img *imaging.NormalizedImage) Outcome {
	logger := common.LoggerFromContext(ctx, o.logger)
	backends := o.registry.Active()
	results := make([]engine.Result, len(backends))

	if o.parallel && len(backends) > 1 {
		var g errgroup.Group
		for i, b := range backends {
			g.Go(func() error {
				results[i] = o.invoke(ctx, b, img, logger)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, b := range backends {
			results[i] = o.invoke(ctx, b, img, logger)
		}
	}

	out := Outcome{Results: results, Merged: Merge(results)}
	if out.Merged.NoUsableText() {
		if fb := o.registry.Fallback(); fb != nil {
			logger.Info("no usable text from primary backends; trying fallback", "engine", fb.Name(), "attempted", len(results))
			out.Results = append(out.Results, o.invoke(ctx, fb, img, logger))
			out.Merged = Merge(out.Results)
			out.FallbackUsed = true
		} else {
			logger.Warn("no usable text and no fallback backend available")
		}
	}

	logger.Info("backends merged",
		"selected_engine", out.Merged.SelectedEngine,
		"selected_confidence", out.Merged.SelectedConfidence,
		"candidates", len(out.Merged.Candidates),
		"fallback_used", out.FallbackUsed,
	)
	return out
}

// invoke runs b under the per-backend deadline. A backend that ignores its
// context is abandoned once the deadline passes; its late result is dropped.
func (o *Orchestrator) invoke(ctx context.Context, b engine.Backend, img *imaging.NormalizedImage, logger *slog.Logger) engine.Result {
	if o.timeout <= 0 {
		return engine.Run(ctx, b, img, logger)
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan engine.Result, 1)
	go func() { done <- engine.Run(ctx, b, img, logger) }()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		select {
		case res := <-done:
			return res
		default:
		}
		res := engine.Failed(b.Name(), common.BackendExecutionError(b.Name(), fmt.Errorf("deadline %s exceeded: %w", o.timeout, ctx.Err())))
		res.Duration = time.Since(start)
		logger.Warn("backend timed out", "engine", b.Name(), "timeout", o.timeout)
		return res
	}
}
