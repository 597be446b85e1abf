// Package format assembles the caller-facing response from a request's merge,
// field extraction and per-backend diagnostics. It aggregates only.
package format

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/fields"
	"github.com/joseph-ayodele/docfields/internal/core/orchestrator"
)

// BackendReport is one backend's outcome as shown to callers.
type BackendReport struct {
	Engine     string  `json:"engine"`
	Success    bool    `json:"success"`
	Confidence float64 `json:"confidence"`
	Estimated  bool    `json:"estimated"`
	Error      string  `json:"error,omitempty"`
	Variant    string  `json:"variant,omitempty"`
	TextLength int     `json:"text_length"`
	WordCount  int     `json:"word_count"`
	DurationMS int64   `json:"duration_ms"`
}

type Metadata struct {
	DocumentType    string   `json:"document_type"`
	RequestedFields []string `json:"requested_fields"`
	IgnoredFields   []string `json:"ignored_fields"`
	SourceKind      string   `json:"source_kind"`
	PagesProcessed  int      `json:"pages_processed"`
	TotalPages      int      `json:"total_pages"`
	SkewDegrees     float64  `json:"skew_degrees"`
	FallbackUsed    bool     `json:"fallback_used"`
}

// Response is the final structured result for one request.
type Response struct {
	RequestID          string                   `json:"request_id"`
	Success            bool                     `json:"success"`
	Routing            constants.Routing        `json:"routing"`
	RawText            string                   `json:"raw_text"`
	SelectedEngine     string                   `json:"selected_engine"`
	SelectedConfidence float64                  `json:"selected_confidence"`
	EnginesAttempted   []string                 `json:"engines_attempted"`
	EnginesUsed        []string                 `json:"engines_used"`
	Fields             map[string]string        `json:"fields"`
	FieldConfidences   map[string]float64       `json:"field_confidences"`
	OverallConfidence  float64                  `json:"overall_confidence"`
	Backends           []BackendReport          `json:"backends"`
	Candidates         []orchestrator.Candidate `json:"candidates"`
	SelectionRationale string                   `json:"selection_rationale"`
	Metadata           Metadata                 `json:"metadata"`
}

// Diagnostics carries request context the formatter copies through verbatim.
type Diagnostics struct {
	RequestID string
	Results   []engine.Result
	Routing   constants.Routing
	Metadata  Metadata
}

// Format aggregates the merge, the extraction and the diagnostics.
// Success means at least one backend produced usable text.
func Format(merged orchestrator.MergedResult, extraction fields.Result, diag Diagnostics) Response {
	resp := Response{
		RequestID:          diag.RequestID,
		Success:            !merged.NoUsableText(),
		Routing:            diag.Routing,
		RawText:            merged.SelectedText,
		SelectedEngine:     merged.SelectedEngine,
		SelectedConfidence: merged.SelectedConfidence,
		EnginesAttempted:   []string{},
		EnginesUsed:        []string{},
		Fields:             map[string]string{},
		FieldConfidences:   map[string]float64{},
		OverallConfidence:  extraction.OverallConfidence,
		Backends:           []BackendReport{},
		Candidates:         merged.Candidates,
		SelectionRationale: merged.Rationale,
		Metadata:           diag.Metadata,
	}
	if resp.Candidates == nil {
		resp.Candidates = []orchestrator.Candidate{}
	}
	if resp.Metadata.RequestedFields == nil {
		resp.Metadata.RequestedFields = []string{}
	}
	if resp.Metadata.IgnoredFields == nil {
		resp.Metadata.IgnoredFields = []string{}
	}
	for k, v := range extraction.Fields {
		resp.Fields[k] = v
	}
	for k, v := range extraction.FieldConfidences {
		resp.FieldConfidences[k] = v
	}
	for _, r := range diag.Results {
		resp.EnginesAttempted = append(resp.EnginesAttempted, r.Engine)
		usable := r.Success && r.Text != ""
		if usable {
			resp.EnginesUsed = append(resp.EnginesUsed, r.Engine)
		}
		resp.Backends = append(resp.Backends, BackendReport{
			Engine:     r.Engine,
			Success:    r.Success,
			Confidence: r.Confidence,
			Estimated:  r.Estimated,
			Error:      r.Error,
			Variant:    string(r.Variant),
			TextLength: len([]rune(r.Text)),
			WordCount:  r.WordCount(),
			DurationMS: r.Duration.Milliseconds(),
		})
	}
	return resp
}

// Validate checks the response against ResponseSchema.
func Validate(resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if err := common.ValidateJSONAgainstSchema(ResponseSchema(), raw); err != nil {
		return common.WrapError(err, "response failed schema check")
	}
	return nil
}

// ToStruct renders the response as a protobuf Struct for RPC callers.
func ToStruct(resp Response) (*structpb.Struct, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return structpb.NewStruct(m)
}
