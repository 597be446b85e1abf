package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reDate     = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.](19|20)\d{2}\b`)
	reDigitRun = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b|\b[A-Z]{5}\d{4}[A-Z]\b`)
)

const (
	// MaxEstimatedConfidence caps synthesized scores below engine-reported ones.
	MaxEstimatedConfidence = 0.9
	engineWeight           = 0.7
)

const commonPunct = ".,:;/-@()'#&+\"%"

// EstimateConfidence synthesizes a [0,1] score for engines that report none.
// Signals: amount of text, character-class diversity, and the share of stray
// symbols (garbage glyphs push it down). It is an estimate, not a measurement.
func EstimateConfidence(txt string) float64 {
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return 0
	}

	var total, upper, lower, digit, space, punct, symbol int
	for _, r := range txt {
		total++
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digit++
		case unicode.IsSpace(r):
			space++
		case strings.ContainsRune(commonPunct, r):
			punct++
		default:
			symbol++
		}
	}

	score := 0.2 // base
	// enough content
	score += 0.25 * minf(float64(total)/200.0, 1)

	classes := 0
	for _, n := range []int{upper, lower, digit, space, punct} {
		if n > 0 {
			classes++
		}
	}
	score += 0.15 * float64(classes) / 5.0

	symbolRatio := float64(symbol) / float64(total)
	score += 0.3 * (1 - minf(symbolRatio*4, 1))

	// common document artifacts
	if reDate.MatchString(txt) {
		score += 0.05
	}
	if reDigitRun.MatchString(txt) {
		score += 0.05
	}
	return clamp(score, 0, MaxEstimatedConfidence)
}

// BlendConfidence weights an engine-reported score over the text heuristic.
// A non-positive engine score falls back to the heuristic alone.
func BlendConfidence(engine float64, txt string) float64 {
	heur := EstimateConfidence(txt)
	if engine <= 0 {
		return heur
	}
	return clamp(engineWeight*clamp(engine, 0, 1)+(1-engineWeight)*heur, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
