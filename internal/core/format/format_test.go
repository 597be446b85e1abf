package format

import (
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
	"github.com/joseph-ayodele/docfields/internal/core/fields"
	"github.com/joseph-ayodele/docfields/internal/core/orchestrator"
)

func sampleResults() []engine.Result {
	return []engine.Result{
		{Engine: "tesseract", Text: "Name: ASHA RAO", Confidence: 0.82, Success: true, Variant: engine.VariantScaled, Duration: 1500 * time.Millisecond},
		engine.Failed("gemini", errors.New("quota exceeded")),
		{Engine: "openai", Text: "", Confidence: 0, Success: true},
	}
}

func TestFormatAggregates(t *testing.T) {
	results := sampleResults()
	merged := orchestrator.Merge(results)
	extraction := fields.Result{
		Fields:            map[string]string{"name": "ASHA RAO"},
		FieldConfidences:  map[string]float64{"name": 0.95},
		OverallConfidence: 0.96,
	}
	resp := Format(merged, extraction, Diagnostics{
		RequestID: "req-1",
		Results:   results,
		Routing:   constants.RoutingAccept,
		Metadata:  Metadata{DocumentType: "id_card", SourceKind: "IMAGE"},
	})

	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.SelectedEngine != "tesseract" || resp.RawText != "Name: ASHA RAO" {
		t.Fatalf("selected = %q %q", resp.SelectedEngine, resp.RawText)
	}
	if len(resp.EnginesAttempted) != 3 {
		t.Fatalf("engines_attempted = %v", resp.EnginesAttempted)
	}
	if len(resp.EnginesUsed) != 1 || resp.EnginesUsed[0] != "tesseract" {
		t.Fatalf("engines_used = %v", resp.EnginesUsed)
	}
	if got := resp.Backends[1]; got.Success || got.Error == "" {
		t.Fatalf("failed backend report = %+v", got)
	}
	if got := resp.Backends[0]; got.DurationMS != 1500 || got.WordCount != 3 || got.TextLength != 14 {
		t.Fatalf("backend report = %+v", got)
	}
	if resp.Metadata.RequestedFields == nil || resp.Metadata.IgnoredFields == nil {
		t.Fatal("metadata lists must be non-nil")
	}
	if err := Validate(resp); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFormatNoUsableText(t *testing.T) {
	results := []engine.Result{engine.Failed("tesseract-basic", errors.New("exit status 1"))}
	resp := Format(orchestrator.Merge(results), fields.Result{}, Diagnostics{
		RequestID: "req-2",
		Results:   results,
		Routing:   constants.RoutingReject,
	})
	if resp.Success {
		t.Fatal("expected success=false")
	}
	if resp.EnginesUsed == nil || len(resp.EnginesUsed) != 0 {
		t.Fatalf("engines_used = %#v, want empty non-nil", resp.EnginesUsed)
	}
	if resp.SelectedEngine != constants.EngineNone || resp.OverallConfidence != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(resp.Fields) != 0 {
		t.Fatalf("fields = %v", resp.Fields)
	}
	if err := Validate(resp); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFormatDoesNotAliasInputs(t *testing.T) {
	extraction := fields.Result{
		Fields:           map[string]string{"pincode": "560001"},
		FieldConfidences: map[string]float64{"pincode": 0.95},
	}
	resp := Format(orchestrator.Merge(nil), extraction, Diagnostics{RequestID: "r", Routing: constants.RoutingReject})
	resp.Fields["pincode"] = "changed"
	if extraction.Fields["pincode"] != "560001" {
		t.Fatal("Format must copy the field map")
	}
}

func TestValidateRejectsBadResponse(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Response)
	}{
		{"confidence out of range", func(r *Response) { r.OverallConfidence = 1.4 }},
		{"unknown routing", func(r *Response) { r.Routing = "MAYBE" }},
		{"unknown field", func(r *Response) { r.Fields["shoe_size"] = "9" }},
		{"empty field value", func(r *Response) { r.Fields["name"] = "" }},
		{"missing request id", func(r *Response) { r.RequestID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Format(orchestrator.Merge(nil), fields.Result{}, Diagnostics{RequestID: "r", Routing: constants.RoutingReject})
			tt.mutate(&resp)
			if err := Validate(resp); err == nil {
				t.Fatal("expected schema violation")
			}
		})
	}
}

func TestToStruct(t *testing.T) {
	results := sampleResults()
	resp := Format(orchestrator.Merge(results), fields.Result{
		Fields:           map[string]string{"name": "ASHA RAO"},
		FieldConfidences: map[string]float64{"name": 0.95},
	}, Diagnostics{RequestID: "req-3", Results: results, Routing: constants.RoutingReview})

	s, err := ToStruct(resp)
	if err != nil {
		t.Fatalf("ToStruct: %v", err)
	}
	m := s.AsMap()
	if m["request_id"] != "req-3" || m["routing"] != "REVIEW" {
		t.Fatalf("struct = %v", m)
	}
	f, ok := m["fields"].(map[string]any)
	if !ok || f["name"] != "ASHA RAO" {
		t.Fatalf("fields = %v", m["fields"])
	}
}
