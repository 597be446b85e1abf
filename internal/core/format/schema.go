package format

import "github.com/joseph-ayodele/docfields/constants"

func unitInterval() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

// ResponseSchema returns the JSON Schema every Response must satisfy.
func ResponseSchema() map[string]any {
	backend := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"engine":      map[string]any{"type": "string", "minLength": 1},
			"success":     map[string]any{"type": "boolean"},
			"confidence":  unitInterval(),
			"estimated":   map[string]any{"type": "boolean"},
			"error":       map[string]any{"type": "string"},
			"variant":     map[string]any{"type": "string"},
			"text_length": map[string]any{"type": "integer", "minimum": 0},
			"word_count":  map[string]any{"type": "integer", "minimum": 0},
			"duration_ms": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"engine", "success", "confidence"},
	}
	candidate := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"engine":      map[string]any{"type": "string"},
			"confidence":  unitInterval(),
			"word_count":  map[string]any{"type": "integer", "minimum": 0},
			"char_length": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"engine", "confidence"},
	}
	metadata := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_type":    map[string]any{"type": "string"},
			"requested_fields": stringList(),
			"ignored_fields":   stringList(),
			"source_kind":      map[string]any{"type": "string"},
			"pages_processed":  map[string]any{"type": "integer", "minimum": 0},
			"total_pages":      map[string]any{"type": "integer", "minimum": 0},
			"skew_degrees":     map[string]any{"type": "number"},
			"fallback_used":    map[string]any{"type": "boolean"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"request_id":          map[string]any{"type": "string", "minLength": 1},
			"success":             map[string]any{"type": "boolean"},
			"routing":             map[string]any{"type": "string", "enum": []string{string(constants.RoutingAccept), string(constants.RoutingReview), string(constants.RoutingReject)}},
			"raw_text":            map[string]any{"type": "string"},
			"selected_engine":     map[string]any{"type": "string", "minLength": 1},
			"selected_confidence": unitInterval(),
			"engines_attempted":   stringList(),
			"engines_used":        stringList(),
			"fields":              map[string]any{"type": "object", "propertyNames": map[string]any{"enum": constants.AllFieldNames()}, "additionalProperties": map[string]any{"type": "string", "minLength": 1}},
			"field_confidences":   map[string]any{"type": "object", "additionalProperties": unitInterval()},
			"overall_confidence":  unitInterval(),
			"backends":            map[string]any{"type": "array", "items": backend},
			"candidates":          map[string]any{"type": "array", "items": candidate},
			"selection_rationale": map[string]any{"type": "string"},
			"metadata":            metadata,
		},
		"required": []string{
			"request_id", "success", "routing", "raw_text", "selected_engine", "selected_confidence",
			"engines_attempted", "engines_used", "fields", "field_confidences", "overall_confidence",
			"backends", "metadata",
		},
	}
}
