package fields

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Validator is a strict structural check. Validators accept both the raw
// matched form and the cleaned form of a value.
type Validator func(string) bool

var (
	reNameWord = regexp.MustCompile(`^[A-Za-z]+\.?$`)
	rePAN      = regexp.MustCompile(`^[A-Z]{3}[ABCFGHLJPT][A-Z]\d{4}[A-Z]$`)
	reEmail    = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9\-]+(\.[a-z0-9\-]+)*\.[a-z]{2,}$`)
	reAmount   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	reAY       = regexp.MustCompile(`^((?:19|20)\d{2})\s*[-–/]\s*(\d{2}|\d{4})$`)
)

var dateLayouts = []string{"2006-01-02", "2-1-2006", "2/1/2006", "2.1.2006"}

const minBirthYear = 1900

// validName: 2 to 4 alphabetic words; initials may carry a trailing dot.
func validName(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	letters := 0
	for _, w := range words {
		if !reNameWord.MatchString(w) {
			return false
		}
		letters += len(strings.TrimSuffix(w, "."))
	}
	return letters >= 3
}

// parseDate accepts day-first and ISO layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validDate: calendar-valid, year 1900 or later, not in the future.
func validDate(s string) bool {
	t, ok := parseDate(s)
	if !ok {
		return false
	}
	return t.Year() >= minBirthYear && !t.After(time.Now())
}

func validGender(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MALE", "FEMALE", "OTHER", "TRANSGENDER", "M", "F":
		return true
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validIDNumber: 12 digits (separators allowed), leading digit 2-9, not one repeated digit.
func validIDNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != ' ' && r != '-' {
			return false
		}
	}
	d := digitsOnly(s)
	if len(d) != 12 || d[0] < '2' {
		return false
	}
	return strings.Count(d, d[:1]) != len(d)
}

func validPAN(s string) bool {
	return rePAN.MatchString(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "")))
}

func validEmail(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return !strings.Contains(s, "..") && reEmail.MatchString(s)
}

// mobileDigits returns the 10-digit subscriber number with any +91/0 prefix removed.
func mobileDigits(s string) string {
	d := digitsOnly(s)
	switch {
	case len(d) == 12 && strings.HasPrefix(d, "91"):
		d = d[2:]
	case len(d) == 11 && d[0] == '0':
		d = d[1:]
	}
	return d
}

func validPhone(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !strings.ContainsRune("+ -()", r) {
			return false
		}
	}
	d := mobileDigits(s)
	return len(d) == 10 && d[0] >= '6'
}

// validAddress judges the block as cleanAddress will emit it, so a value cut
// short at the next labelled line is rejected up front.
func validAddress(s string) bool {
	s = cleanAddress(s)
	if len(s) < 10 || len(s) > 300 {
		return false
	}
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func validPincode(s string) bool {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if len(s) != 6 || s[0] == '0' {
		return false
	}
	return digitsOnly(s) == s
}

// validAssessmentYear: YYYY-YY or YYYY-YYYY where the second year follows the first.
func validAssessmentYear(s string) bool {
	start, end, ok := splitAssessmentYear(s)
	return ok && end == start+1
}

func splitAssessmentYear(s string) (int, int, bool) {
	m := reAY.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if len(m[2]) == 2 {
		end += start / 100 * 100
		if end < start {
			end += 100
		}
	}
	return start, end, true
}

// parseAmount strips currency markers, thousands separators and spaces.
func parseAmount(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, p := range []string{"rs.", "rs", "inr", "₹"} {
		s = strings.TrimPrefix(s, p)
	}
	s = strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSuffix(strings.TrimSpace(s), "/-"))
	if !reAmount.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func validPositiveAmount(s string) bool {
	v, ok := parseAmount(s)
	return ok && v > 0
}

func validNonNegativeAmount(s string) bool {
	_, ok := parseAmount(s)
	return ok
}
