package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// Status describes one configured backend.
type Status struct {
	Engine    string `json:"engine"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// StatusReport is the request-independent availability summary.
type StatusReport struct {
	Backends  []Status `json:"backends"`
	Available int      `json:"available"`
	Total     int      `json:"total"`
}

// Degraded reports whether any configured backend is unavailable.
func (s StatusReport) Degraded() bool { return s.Available < s.Total }

// Candidate is the outcome of initializing one backend.
type Candidate struct {
	Name    string
	Backend Backend
	Err     error
}

// Registry holds the process-wide backend handles. It is built once and is
// read-only afterwards; unavailable backends never enter the active set.
type Registry struct {
	active   []Backend
	fallback Backend
	statuses []Status
}

// Deps are shared collaborators handed to backend constructors.
type Deps struct {
	Runner     ocr.Runner
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewRegistry initializes every enabled backend plus the fallback, recording
// each failure once as unavailable.
func NewRegistry(ctx context.Context, cfg common.EnginesConfig, deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var cands []Candidate
	seen := map[string]bool{}
	for _, name := range cfg.Enabled {
		if seen[name] {
			continue
		}
		seen[name] = true
		b, err := build(ctx, name, cfg, deps, logger)
		cands = append(cands, Candidate{Name: name, Backend: b, Err: err})
	}
	fb, err := NewTesseractBasic(cfg.Tesseract, deps.Runner, logger.With("engine", constants.EngineFallback))
	fallback := Candidate{Name: constants.EngineFallback, Err: err}
	if err == nil {
		fallback.Backend = fb
	}
	r := NewRegistryFrom(cands, fallback)
	for _, s := range r.statuses {
		if s.Available {
			logger.Info("backend available", "engine", s.Engine, "fallback", s.Fallback)
		} else {
			logger.Warn("backend unavailable", "engine", s.Engine, "reason", s.Reason, "fallback", s.Fallback)
		}
	}
	return r
}

func build(ctx context.Context, name string, cfg common.EnginesConfig, deps Deps, logger *slog.Logger) (Backend, error) {
	l := logger.With("engine", name)
	switch name {
	case constants.EngineTesseract:
		return asBackend(NewTesseract(cfg.Tesseract, deps.Runner, l))
	case constants.EngineGosseract:
		return NewGosseract(cfg.Tesseract, l)
	case constants.EngineDocumentAI:
		return asBackend(NewDocumentAI(ctx, cfg.DocumentAI, l))
	case constants.EngineGemini:
		return asBackend(NewGemini(ctx, cfg.Gemini, l))
	case constants.EngineOpenAI:
		return asBackend(NewOpenAI(cfg.OpenAI, deps.HTTPClient, l))
	default:
		return nil, common.BackendUnavailableError(name, "unknown engine")
	}
}

// asBackend drops typed-nil pointers so a failed constructor never yields a
// non-nil interface.
func asBackend[T Backend](b T, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}

// NewRegistryFrom assembles a registry from already-initialized candidates.
// A candidate with an error or nil backend is recorded as unavailable.
func NewRegistryFrom(cands []Candidate, fallback Candidate) *Registry {
	r := &Registry{}
	for _, c := range cands {
		st := statusOf(c)
		if st.Available {
			r.active = append(r.active, c.Backend)
		}
		r.statuses = append(r.statuses, st)
	}
	if fallback.Name != "" || fallback.Backend != nil {
		st := statusOf(fallback)
		st.Fallback = true
		if st.Available {
			r.fallback = fallback.Backend
		}
		r.statuses = append(r.statuses, st)
	}
	return r
}

func statusOf(c Candidate) Status {
	name := c.Name
	if name == "" && c.Backend != nil {
		name = c.Backend.Name()
	}
	switch {
	case c.Err != nil:
		reason := c.Err.Error()
		var appErr *common.AppError
		if errors.As(c.Err, &appErr) {
			reason = appErr.Message
		}
		return Status{Engine: name, Reason: reason}
	case c.Backend == nil:
		return Status{Engine: name, Reason: "not initialized"}
	default:
		return Status{Engine: name, Available: true}
	}
}

// Active returns the available primary backends in configuration order.
func (r *Registry) Active() []Backend { return slices.Clone(r.active) }

// Fallback returns the fallback backend, or nil when it is unavailable.
func (r *Registry) Fallback() Backend { return r.fallback }

// Status reports availability per configured backend, fallback included.
func (r *Registry) Status() StatusReport {
	rep := StatusReport{Backends: slices.Clone(r.statuses), Total: len(r.statuses)}
	for _, s := range r.statuses {
		if s.Available {
			rep.Available++
		}
	}
	return rep
}

// Close releases backends that hold connections.
func (r *Registry) Close() error {
	var errs []error
	all := r.active
	if r.fallback != nil {
		all = append(slices.Clone(all), r.fallback)
	}
	for _, b := range all {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", b.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
