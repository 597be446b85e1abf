package core

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/fields"
	"github.com/joseph-ayodele/docfields/internal/core/format"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
	"github.com/joseph-ayodele/docfields/internal/core/orchestrator"
)

// Processor coordinates normalization, backend OCR and field recognition for
// one request at a time. It is safe for concurrent use.
type Processor struct {
	logger       *slog.Logger
	normalizer   *imaging.Normalizer
	orchestrator *orchestrator.Orchestrator
	recognizer   *fields.Recognizer
	registry     *engine.Registry
	routing      common.RoutingConfig
}

func NewProcessor(
	logger *slog.Logger,
	normalizer *imaging.Normalizer,
	registry *engine.Registry,
	orch *orchestrator.Orchestrator,
	recognizer *fields.Recognizer,
	routing common.RoutingConfig,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if orch == nil {
		orch = orchestrator.New(registry, logger)
	}
	if recognizer == nil {
		recognizer = fields.NewRecognizer(logger)
	}
	if routing.AcceptThreshold == 0 && routing.ReviewThreshold == 0 {
		routing = common.RoutingConfig{
			AcceptThreshold: constants.DefaultAcceptThreshold,
			ReviewThreshold: constants.DefaultReviewThreshold,
		}
	}
	return &Processor{
		logger:       logger,
		normalizer:   normalizer,
		orchestrator: orch,
		recognizer:   recognizer,
		registry:     registry,
		routing:      routing,
	}
}

// NewProcessorFromConfig builds the backend registry once and wires every
// stage from cfg. Close releases backend handles.
func NewProcessorFromConfig(ctx context.Context, cfg *common.Config, runner ocr.Runner, client *http.Client, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ocr.ExecRunner{}
	}
	registry := engine.NewRegistry(ctx, cfg.Engines, engine.Deps{Runner: runner, HTTPClient: client, Logger: logger})
	orch := orchestrator.New(registry, logger,
		orchestrator.WithBackendTimeout(cfg.Engines.BackendTimeout),
		orchestrator.WithParallel(cfg.Engines.Parallel),
	)
	return NewProcessor(logger, imaging.NewNormalizer(cfg.Imaging, runner, logger), registry, orch, nil, cfg.Routing)
}

// Process runs the whole pipeline for req. Only invalid requests and
// unreadable sources return an error; every backend failure degrades into
// the response.
func (p *Processor) Process(ctx context.Context, req ProcessingRequest) (*format.Response, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ctx = common.WithRequestID(ctx, req.RequestID)
	logger := common.LoggerFromContext(ctx, p.logger)
	start := time.Now()

	img, err := p.normalizer.Normalize(ctx, req.Source, req.Kind)
	if err != nil {
		logger.Error("normalize failed", "source", req.SourceName, "error", err)
		return nil, err
	}

	out := p.orchestrator.Run(ctx, img)
	requested, ignored := selectFields(req, p.recognizer)
	extraction := p.recognizer.Extract(out.Merged.SelectedText, requested)

	success := !out.Merged.NoUsableText()
	routing := Route(success, extraction.OverallConfidence, p.routing)

	meta := format.Metadata{
		DocumentType:    constants.CanonicalDocumentType(req.DocumentTypeHint),
		RequestedFields: fieldNames(requested),
		IgnoredFields:   ignored,
		SourceKind:      string(img.Kind),
		SkewDegrees:     img.SkewDegrees,
		FallbackUsed:    out.FallbackUsed,
	}
	if img.PDF != nil {
		meta.PagesProcessed = img.PDF.PagesProcessed
		meta.TotalPages = img.PDF.TotalPages
	}

	resp := format.Format(out.Merged, extraction, format.Diagnostics{
		RequestID: req.RequestID,
		Results:   out.Results,
		Routing:   routing,
		Metadata:  meta,
	})
	if err := format.Validate(resp); err != nil {
		// The response is still returned; a schema miss here is a bug, not a caller error.
		logger.Error("response failed schema check", "error", err)
	}

	logger.Info("request processed",
		"source", req.SourceName,
		"selected_engine", resp.SelectedEngine,
		"selected_confidence", resp.SelectedConfidence,
		"fields", len(resp.Fields),
		"overall_confidence", resp.OverallConfidence,
		"routing", resp.Routing,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &resp, nil
}

// Status reports backend availability without touching any request.
func (p *Processor) Status() engine.StatusReport {
	return p.registry.Status()
}

// Close releases backend handles.
func (p *Processor) Close() error {
	return p.registry.Close()
}

// Route maps a request outcome onto ACCEPT/REVIEW/REJECT. A request where no
// backend produced text is always rejected.
func Route(success bool, overall float64, cfg common.RoutingConfig) constants.Routing {
	switch {
	case !success:
		return constants.RoutingReject
	case overall >= cfg.AcceptThreshold:
		return constants.RoutingAccept
	case overall >= cfg.ReviewThreshold:
		return constants.RoutingReview
	default:
		return constants.RoutingReject
	}
}

func fieldNames(fs []constants.Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
