// Package fields recognizes named fields in merged OCR text.
//
// Each field has a cascade of steps ordered from most specific (labelled) to
// least specific (bare pattern). Every hit is scored by tier; the first
// validated hit ends the cascade. The retained value is cleaned and
// re-validated, so a field is either present and valid or absent.
package fields

import (
	"log/slog"
	"maps"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/docfields/constants"
)

// Match is the retained hit for one field.
type Match struct {
	Field       constants.Field `json:"field"`
	Raw         string          `json:"raw_match"`
	Value       string          `json:"cleaned_value"`
	Confidence  float64         `json:"confidence"`
	PatternRank int             `json:"pattern_rank"`
	Labelled    bool            `json:"labelled"`
	Validated   bool            `json:"validated"`
}

// Result is the field map, its parallel confidence map and the overall score.
type Result struct {
	Fields            map[string]string  `json:"fields"`
	FieldConfidences  map[string]float64 `json:"field_confidences"`
	OverallConfidence float64            `json:"overall_confidence"`
	Matches           []Match            `json:"-"`
}

// Breadth bonus per populated field and its cap.
const (
	BreadthBonusPerField = 0.01
	BreadthBonusCap      = 0.05
)

type Recognizer struct {
	cascades map[constants.Field]Cascade
	logger   *slog.Logger
}

// NewRecognizer uses DefaultCascades.
func NewRecognizer(logger *slog.Logger) *Recognizer {
	return NewRecognizerWith(DefaultCascades(), logger)
}

func NewRecognizerWith(cascades []Cascade, logger *slog.Logger) *Recognizer {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[constants.Field]Cascade, len(cascades))
	for _, c := range cascades {
		m[c.Field] = c
	}
	return &Recognizer{cascades: m, logger: logger}
}

// Supports reports whether a cascade exists for f.
func (r *Recognizer) Supports(f constants.Field) bool {
	_, ok := r.cascades[f]
	return ok
}

// Extract evaluates each requested field independently over text. Fields
// without a cascade are skipped. Blank text yields an empty result with
// zero confidence.
func (r *Recognizer) Extract(text string, requested []constants.Field) Result {
	res := Result{Fields: map[string]string{}, FieldConfidences: map[string]float64{}}
	text = norm.NFKC.String(text)
	if strings.TrimSpace(text) == "" {
		return res
	}

	seen := map[constants.Field]bool{}
	for _, f := range requested {
		if seen[f] {
			continue
		}
		seen[f] = true
		c, ok := r.cascades[f]
		if !ok {
			continue
		}
		m, ok := evaluate(c, text)
		if !ok {
			r.logger.Debug("field not found", "field", f)
			continue
		}
		res.Fields[string(f)] = m.Value
		res.FieldConfidences[string(f)] = m.Confidence
		res.Matches = append(res.Matches, m)
	}
	res.OverallConfidence = Overall(res.FieldConfidences)
	r.logger.Debug("fields extracted", "requested", len(seen), "found", len(res.Fields), "overall_confidence", res.OverallConfidence)
	return res
}

// evaluate runs one cascade: keep the best-scoring hit, stop at the first
// validated one, then clean and re-validate.
func evaluate(c Cascade, text string) (Match, bool) {
	var best *Match
	var bestStep Step
scan:
	for rank, step := range c.Steps {
		vi := step.Pattern.SubexpIndex("v")
		for _, sm := range step.Pattern.FindAllStringSubmatch(text, -1) {
			raw := sm[0]
			if vi > 0 {
				raw = sm[vi]
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			validated := step.Validate(raw)
			conf := tier(step.Labelled, validated)
			if best == nil || conf > best.Confidence {
				best = &Match{Field: c.Field, Raw: raw, Confidence: conf, PatternRank: rank, Labelled: step.Labelled, Validated: validated}
				bestStep = step
			}
			if validated {
				break scan
			}
		}
	}
	if best == nil {
		return Match{}, false
	}
	best.Value = bestStep.Clean(best.Raw)
	if !bestStep.Validate(best.Value) {
		return Match{}, false
	}
	return *best, true
}

func tier(labelled, validated bool) float64 {
	switch {
	case labelled && validated:
		return LabelledValidated
	case labelled:
		return LabelledBase
	case validated:
		return FallbackValidated
	default:
		return FallbackBase
	}
}

// Overall is the mean field confidence plus a breadth bonus, capped at 1.
// No fields scores 0.
func Overall(confidences map[string]float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	// summed in key order so the result does not depend on map iteration
	keys := slices.Sorted(maps.Keys(confidences))
	var sum float64
	for _, k := range keys {
		sum += confidences[k]
	}
	mean := sum / float64(len(confidences))
	bonus := math.Min(BreadthBonusPerField*float64(len(confidences)), BreadthBonusCap)
	return math.Min(mean+bonus, 1)
}
