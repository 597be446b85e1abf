package fields

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Cleaner canonicalizes a matched value. Cleaners are idempotent.
type Cleaner func(string) string

var (
	reSpaceRun  = regexp.MustCompile(`\s+`)
	reLabelLine = regexp.MustCompile(`(?m)^[ \t]*[A-Za-z][A-Za-z'/ .]{1,30}:`)
)

func collapseSpace(s string) string {
	return strings.TrimSpace(reSpaceRun.ReplaceAllString(s, " "))
}

// cleanName collapses whitespace and upper-cases with Unicode case rules.
func cleanName(s string) string {
	return cases.Upper(language.Und).String(collapseSpace(strings.Trim(s, " ,;")))
}

func cleanDate(s string) string {
	if t, ok := parseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}

func cleanGender(s string) string {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "M", "MALE":
		return "MALE"
	case "F", "FEMALE":
		return "FEMALE"
	case "TRANSGENDER", "OTHER":
		return "OTHER"
	default:
		return v
	}
}

// cleanIDNumber regroups the 12 digits as "dddd dddd dddd".
func cleanIDNumber(s string) string {
	d := digitsOnly(s)
	if len(d) != 12 {
		return strings.TrimSpace(s)
	}
	return d[:4] + " " + d[4:8] + " " + d[8:]
}

func cleanPAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func cleanEmail(s string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(s), "."))
}

// cleanPhone canonicalizes to +91 followed by the 10-digit number.
func cleanPhone(s string) string {
	d := mobileDigits(s)
	if len(d) != 10 {
		return strings.TrimSpace(s)
	}
	return "+91" + d
}

// cleanAddress cuts the block at the next labelled line and collapses whitespace.
func cleanAddress(s string) string {
	s = strings.TrimSpace(s)
	if loc := reLabelLine.FindStringIndex(s); loc != nil && loc[0] > 0 {
		s = s[:loc[0]]
	}
	return strings.Trim(collapseSpace(s), " ,")
}

func cleanPincode(s string) string {
	return digitsOnly(s)
}

func cleanAssessmentYear(s string) string {
	start, end, ok := splitAssessmentYear(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%d-%02d", start, end%100)
}

// cleanAmount strips currency and thousands separators and fixes two decimals.
func cleanAmount(s string) string {
	v, ok := parseAmount(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%.2f", v)
}
