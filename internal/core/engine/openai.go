package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/imaging"
	"github.com/joseph-ayodele/docfields/internal/core/ocr"
)

// transcriptionSchema constrains the model's JSON reply.
var transcriptionSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"text":       map[string]any{"type": "string"},
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	},
	"required": []string{"text"},
}

// OpenAI transcribes the colour variant with a vision chat model.
type OpenAI struct {
	cfg    common.OpenAIConfig
	http   *http.Client
	logger *slog.Logger
}

func NewOpenAI(cfg common.OpenAIConfig, client *http.Client, logger *slog.Logger) (*OpenAI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, common.BackendUnavailableError(constants.EngineOpenAI, "missing OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAI{cfg: cfg, http: client, logger: logger}, nil
}

func (o *OpenAI) Name() string { return constants.EngineOpenAI }

func (o *OpenAI) Recognize(ctx context.Context, img *imaging.NormalizedImage) (Result, error) {
	if img.RGB == nil {
		return Result{}, fmt.Errorf("no rgb variant")
	}
	data, err := encodePNG(img.RGB)
	if err != nil {
		return Result{}, err
	}

	body := map[string]any{
		"model":           o.cfg.Model,
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": transcribePrompt +
				` Reply with JSON {"text": "<transcription>", "confidence": <0..1 how legible the document was>}.`},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": "Transcribe this document."},
				{"type": "image_url", "image_url": map[string]any{
					"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
				}},
			}},
		},
	}
	endpoint := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + o.cfg.APIKey}
	raw, status, err := sendJSON(ctx, o.http, endpoint, body, headers, o.logger)
	if err != nil {
		return Result{}, fmt.Errorf("openai status %d: %w", status, err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return Result{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return Result{}, fmt.Errorf("no choices in openai response")
	}
	content := []byte(stripCodeFences(cc.Choices[0].Message.Content))
	if err := common.ValidateJSONAgainstSchema(transcriptionSchema, content); err != nil {
		return Result{}, fmt.Errorf("schema validation failed: %w", err)
	}
	var out struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return Result{}, fmt.Errorf("unmarshal transcription: %w", err)
	}
	// self-reported legibility is weighted like an engine score
	return Result{
		Text:       out.Text,
		Confidence: ocr.BlendConfidence(out.Confidence, ocr.Normalize(out.Text)),
		Estimated:  out.Confidence <= 0,
		Variant:    VariantRGB,
	}, nil
}
