package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	genai "google.golang.org/genai"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

const transcribePrompt = "Transcribe all text visible in this scanned document exactly as printed. " +
	"Keep the original line breaks and reading order. Do not summarize, translate, correct or explain. " +
	"Return only the transcription."

// Gemini asks a Gemini vision model to transcribe the colour variant.
// The model reports no confidence, so it is estimated from the text.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGemini(ctx context.Context, cfg common.GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, common.BackendUnavailableError(constants.EngineGemini, "missing GOOGLE_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, common.BackendUnavailableError(constants.EngineGemini, err.Error())
	}
	return &Gemini{client: c, model: cfg.Model, logger: logger}, nil
}

func (g *Gemini) Name() string { return constants.EngineGemini }

func (g *Gemini) Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error) {
	if img.RGB == nil {
		return Result{}, fmt.Errorf("no rgb variant")
	}
	data, err := encodePNG(img.RGB)
	if err != nil {
		return Result{}, err
	}
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, nil)
	if err != nil {
		return Result{}, fmt.Errorf("gemini API call failed: %w", err)
	}
	text := stripCodeFences(res.Text())
	return Result{
		Text:       text,
		Confidence: ocr.EstimateConfidence(ocr.Normalize(text)),
		Estimated:  true,
		Variant:    VariantRGB,
	}, nil
}

// stripCodeFences removes a ``` fence some models wrap around plain output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i != -1 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
