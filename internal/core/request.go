package core

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/common"
	"github.com/joseph-ayodele/docfields/internal/core/fields"
)

// ProcessingRequest is one document to extract fields from.
// Kind may be empty; the normalizer then sniffs PDF vs image.
type ProcessingRequest struct {
	RequestID        string
	Source           []byte
	Kind             constants.SourceKind
	DocumentTypeHint string
	RequestedFields  []string

	// SourceName is informational (batch file path); it is only logged.
	SourceName string
}

// withDefaults assigns a request id when the caller did not.
func (r ProcessingRequest) withDefaults() ProcessingRequest {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	return r
}

// Validate checks the request shape. Failures wrap common.ErrValidation.
func (r ProcessingRequest) Validate() error {
	v := common.NewValidator().
		Field("request_id", r.RequestID, common.Required, common.UUID).
		Field("source", r.Source, common.Required, common.MaxBytes(constants.MaxSourceBytes))
	if r.Kind != "" {
		v.Field("kind", string(r.Kind), common.OneOf(string(constants.PDF), string(constants.IMAGE)))
	}
	return v.Error()
}

// selectFields resolves the fields to extract: requested names when given,
// else the document type's default profile. Names that are unknown or have no
// cascade are returned as ignored, in request order.
func selectFields(r ProcessingRequest, rec *fields.Recognizer) ([]constants.Field, []string) {
	if len(r.RequestedFields) == 0 {
		return constants.FieldsForDocument(r.DocumentTypeHint), []string{}
	}
	selected := make([]constants.Field, 0, len(r.RequestedFields))
	ignored := []string{}
	seen := make(map[constants.Field]bool, len(r.RequestedFields))
	for _, name := range r.RequestedFields {
		f, ok := constants.CanonicalizeField(name)
		if !ok || !rec.Supports(f) {
			ignored = append(ignored, name)
			continue
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		selected = append(selected, f)
	}
	return selected, ignored
}
