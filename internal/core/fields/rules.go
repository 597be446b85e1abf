package fields

import (
	"regexp"

	"github.com/joseph-ayodele/docfields/constants"
)

// Step is one entry of a field cascade: a matcher with the validator and
// cleaner applied to its hits. The value is the "v" submatch.
type Step struct {
	Pattern  *regexp.Regexp
	Labelled bool
	Validate Validator
	Clean    Cleaner
}

// Cascade is the ordered steps for one field, most specific first.
type Cascade struct {
	Field constants.Field
	Steps []Step
}

// Confidence tiers by step kind and validation outcome.
const (
	LabelledBase      = 0.60
	LabelledValidated = 0.95
	FallbackBase      = 0.40
	FallbackValidated = 0.75
)

const (
	namePart = `(?P<v>[A-Za-z][A-Za-z.]*(?:[ \t]+[A-Za-z][A-Za-z.]*){0,5})`
	amount   = `(?P<v>(?:rs\.?|inr|₹)?[ \t]*\d[\d,]*(?:\.\d{1,2})?(?:/-)?)`
)

func labelled(expr string, v Validator, c Cleaner) Step {
	return Step{Pattern: regexp.MustCompile(expr), Labelled: true, Validate: v, Clean: c}
}

func fallback(expr string, v Validator, c Cleaner) Step {
	return Step{Pattern: regexp.MustCompile(expr), Validate: v, Clean: c}
}

// DefaultCascades is the built-in rule table, one cascade per known field.
func DefaultCascades() []Cascade {
	return []Cascade{
		{constants.FieldName, []Step{
			labelled(`(?im)^[ \t]*(?:full[ \t]+)?name[ \t]*[:\-][ \t]*`+namePart+`[ \t,]*$`, validName, cleanName),
		}},
		{constants.FieldFatherName, []Step{
			labelled(`(?im)^[ \t]*father['’]?s?[ \t]+name[ \t]*[:\-][ \t]*`+namePart+`[ \t,]*$`, validName, cleanName),
			labelled(`(?im)\b[SDWC]/O[ \t]*[:\-]?[ \t]*`+namePart+`[ \t,]*$`, validName, cleanName),
		}},
		{constants.FieldDateOfBirth, []Step{
			labelled(`(?i)\b(?:date[ \t]+of[ \t]+birth|d\.?o\.?b\.?|birth[ \t]*date)[ \t]*[:\-]?[ \t]*(?P<v>\d{1,2}[\-/.]\d{1,2}[\-/.]\d{4})\b`, validDate, cleanDate),
			fallback(`\b(?P<v>\d{2}[\-/.]\d{2}[\-/.](?:19|20)\d{2})\b`, validDate, cleanDate),
		}},
		{constants.FieldGender, []Step{
			labelled(`(?i)\b(?:gender|sex)[ \t]*[:\-/]?[ \t]*(?P<v>male|female|transgender|other|m|f)\b`, validGender, cleanGender),
			fallback(`(?im)(?:^|[\s/])(?P<v>male|female)\b`, validGender, cleanGender),
		}},
		{constants.FieldIDNumber, []Step{
			labelled(`(?i)\b(?:aadhaar|aadhar|uid|id)[ \t]*(?:no\.?|number|#)?[ \t]*[:\-]?[ \t]*(?P<v>\d{4}[ \-]?\d{4}[ \-]?\d{4})\b`, validIDNumber, cleanIDNumber),
			fallback(`\b(?P<v>[2-9]\d{3}[ \-]\d{4}[ \-]\d{4})\b`, validIDNumber, cleanIDNumber),
		}},
		{constants.FieldPAN, []Step{
			labelled(`(?i)\b(?:permanent[ \t]+account[ \t]+number|pan)(?:[ \t]*(?:no\.?|number|card))?[ \t]*[:\-]?[ \t]*(?P<v>[A-Z]{5}[ \t]?\d{4}[ \t]?[A-Z])\b`, validPAN, cleanPAN),
			fallback(`\b(?P<v>[A-Z]{5}\d{4}[A-Z])\b`, validPAN, cleanPAN),
		}},
		{constants.FieldEmail, []Step{
			labelled(`(?i)\be-?mail(?:[ \t]*(?:id|address))?[ \t]*[:\-]?[ \t]*(?P<v>[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`, validEmail, cleanEmail),
			fallback(`(?P<v>[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,})`, validEmail, cleanEmail),
		}},
		{constants.FieldPhone, []Step{
			labelled(`(?i)\b(?:phone|mobile|mob|tel|contact)(?:[ \t]*(?:no\.?|number))?[ \t]*[:\-]?[ \t]*(?P<v>(?:\+?91[ \-]?|0)?[6-9]\d{4}[ \-]?\d{5})\b`, validPhone, cleanPhone),
			fallback(`(?:^|[^\d+])(?P<v>(?:\+91[ \-]?)?[6-9]\d{9})\b`, validPhone, cleanPhone),
		}},
		{constants.FieldAddress, []Step{
			labelled(`(?is)\baddress[ \t]*[:\-][ \t]*(?P<v>.+?)(?:\n[ \t]*\n|\z)`, validAddress, cleanAddress),
		}},
		{constants.FieldPincode, []Step{
			labelled(`(?i)\b(?:pin[ \t]*code|pin|postal[ \t]+code)[ \t]*[:\-]?[ \t]*(?P<v>[1-9]\d{2}[ \t]?\d{3})\b`, validPincode, cleanPincode),
			fallback(`(?im)[A-Za-z][ \t]*[\-,]?[ \t]*(?P<v>[1-9]\d{5})[ \t]*$`, validPincode, cleanPincode),
		}},
		{constants.FieldAssessmentYear, []Step{
			labelled(`(?i)\bassessment[ \t]+year[ \t]*[:\-]?[ \t]*(?P<v>(?:19|20)\d{2}[ \t]*[\-–/][ \t]*(?:\d{4}|\d{2}))\b`, validAssessmentYear, cleanAssessmentYear),
		}},
		{constants.FieldGrossIncome, []Step{
			labelled(`(?i)\bgross[ \t]+(?:total[ \t]+)?(?:salary|income)(?:[ \t]*\([^)\n]*\))?[ \t]*[:\-]?[ \t]*`+amount, validPositiveAmount, cleanAmount),
		}},
		{constants.FieldTaxDeducted, []Step{
			labelled(`(?i)\b(?:tax[ \t]+deducted(?:[ \t]+at[ \t]+source)?|tds)(?:[ \t]*\([^)\n]*\))?[ \t]*[:\-]?[ \t]*`+amount, validNonNegativeAmount, cleanAmount),
		}},
	}
}
