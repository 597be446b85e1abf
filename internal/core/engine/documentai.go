package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// DocumentAI sends the colour variant to a Google Document AI OCR processor.
// Confidence is the mean token layout confidence reported by the processor.
type DocumentAI struct {
	client *documentai.DocumentProcessorClient
	name   string // projects/<p>/locations/<l>/processors/<id>
	logger *slog.Logger
}

// NewDocumentAI builds the processor client once. Missing settings or a
// failed dial leave the backend unavailable for the process lifetime.
func NewDocumentAI(ctx context.Context, cfg common.DocumentAIConfig, logger *slog.Logger) (*DocumentAI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, common.BackendUnavailableError(constants.EngineDocumentAI, "project_id and processor_id are required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, common.BackendUnavailableError(constants.EngineDocumentAI, fmt.Sprintf("failed to create Document AI client: %v", err))
	}
	return &DocumentAI{
		client: client,
		name:   fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		logger: logger,
	}, nil
}

func (d *DocumentAI) Name() string { return constants.EngineDocumentAI }

func (d *DocumentAI) Close() error { return d.client.Close() }

func (d *DocumentAI) Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error) {
	if img.RGB == nil {
		return Result{}, fmt.Errorf("no rgb variant")
	}
	data, err := encodePNG(img.RGB)
	if err != nil {
		return Result{}, err
	}
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "image/png",
			},
		},
		SkipHumanReview: true,
	}
	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to process document: %w", err)
	}
	doc := resp.GetDocument()
	mean, tokens := tokenConfidence(doc)
	text := doc.GetText()
	return Result{
		Text:        text,
		Confidence:  ocr.BlendConfidence(mean, ocr.Normalize(text)),
		Estimated:   tokens == 0,
		Variant:     VariantRGB,
		Diagnostics: map[string]string{"tokens": strconv.Itoa(tokens), "pages": strconv.Itoa(len(doc.GetPages()))},
	}, nil
}

func tokenConfidence(doc *documentaipb.Document) (float64, int) {
	var sum float64
	var n int
	for _, page := range doc.GetPages() {
		for _, tok := range page.GetTokens() {
			if l := tok.GetLayout(); l != nil && l.GetConfidence() > 0 {
				sum += float64(l.GetConfidence())
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}
