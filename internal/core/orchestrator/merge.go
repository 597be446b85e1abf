package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joseph-ayodele/docfields/constants"
	"github.com/joseph-ayodele/docfields/internal/core/engine"
)

// TieWindow is the confidence distance within which candidates count as tied
// with the top-ranked one.
const TieWindow = 0.1

// Candidate is one usable backend output as seen by the merge.
type Candidate struct {
	Engine     string  `json:"engine"`
	Confidence float64 `json:"confidence"`
	WordCount  int     `json:"word_count"`
	CharLength int     `json:"char_length"`
}

// MergedResult is the selected text for a request plus the audit trail.
// SelectedText is non-empty iff at least one result succeeded with non-empty text.
type MergedResult struct {
	SelectedText       string      `json:"selected_text"`
	SelectedConfidence float64     `json:"selected_confidence"`
	SelectedEngine     string      `json:"selected_engine"`
	Candidates         []Candidate `json:"candidates"` // ranked, best first
	Rationale          string      `json:"selection_rationale"`
}

// NoUsableText reports the explicit "nothing usable" state.
func (m MergedResult) NoUsableText() bool { return m.SelectedEngine == constants.EngineNone }

// Merge picks one text among backend results.
//
//  1. keep successful results with non-blank text
//  2. none left: SelectedEngine "none", empty text
//  3. rank by (confidence, word count, char length) descending; engine name breaks exact ties
//  4. among candidates within TieWindow of the top confidence, take the highest word count
//
// Merge is pure: the same input always yields the same output.
func Merge(results []engine.Result) MergedResult {
	type usable struct {
		Candidate
		text string
	}
	var pool []usable
	for _, r := range results {
		txt := strings.TrimSpace(r.Text)
		if !r.Success || txt == "" {
			continue
		}
		pool = append(pool, usable{
			Candidate: Candidate{
				Engine:     r.Engine,
				Confidence: r.Confidence,
				WordCount:  len(strings.Fields(txt)),
				CharLength: len([]rune(txt)),
			},
			text: txt,
		})
	}
	if len(pool) == 0 {
		return MergedResult{
			SelectedEngine: constants.EngineNone,
			Candidates:     []Candidate{},
			Rationale:      fmt.Sprintf("no usable text from %d backend result(s)", len(results)),
		}
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i].Candidate, pool[j].Candidate
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.WordCount != b.WordCount {
			return a.WordCount > b.WordCount
		}
		if a.CharLength != b.CharLength {
			return a.CharLength > b.CharLength
		}
		return a.Engine < b.Engine
	})

	top := pool[0]
	pick := 0
	var tied []string
	for i, u := range pool {
		if u.Confidence < top.Confidence-TieWindow-1e-9 {
			// ranked by confidence: nothing after this is tied
			break
		}
		if i > 0 {
			tied = append(tied, u.Engine)
		}
		if u.WordCount > pool[pick].WordCount {
			pick = i
		}
	}
	sel := pool[pick]

	cands := make([]Candidate, len(pool))
	for i, u := range pool {
		cands[i] = u.Candidate
	}

	var why strings.Builder
	fmt.Fprintf(&why, "%d candidate(s); top by confidence %s (%.3f, %d words)", len(pool), top.Engine, top.Confidence, top.WordCount)
	switch {
	case len(tied) == 0:
		why.WriteString("; no candidate within tie window, selected top")
	case pick == 0:
		fmt.Fprintf(&why, "; tied within %.2f: %s; top already has the most words", TieWindow, strings.Join(tied, ", "))
	default:
		fmt.Fprintf(&why, "; tied within %.2f: %s; selected %s for higher word count (%d)", TieWindow, strings.Join(tied, ", "), sel.Engine, sel.WordCount)
	}

	return MergedResult{
		SelectedText:       sel.text,
		SelectedConfidence: sel.Confidence,
		SelectedEngine:     sel.Engine,
		Candidates:         cands,
		Rationale:          why.String(),
	}
}
