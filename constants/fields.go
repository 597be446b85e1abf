package constants

import (
	"strings"
)

type Field string

const (
	FieldName           Field = "name"
	FieldFatherName     Field = "father_name"
	FieldDateOfBirth    Field = "date_of_birth"
	FieldGender         Field = "gender"
	FieldIDNumber       Field = "id_number"
	FieldPAN            Field = "pan_number"
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldAddress        Field = "address"
	FieldPincode        Field = "pincode"
	FieldAssessmentYear Field = "assessment_year"
	FieldGrossIncome    Field = "gross_income"
	FieldTaxDeducted    Field = "tax_deducted"
)

var allFields = []Field{
	FieldName,
	FieldFatherName,
	FieldDateOfBirth,
	FieldGender,
	FieldIDNumber,
	FieldPAN,
	FieldEmail,
	FieldPhone,
	FieldAddress,
	FieldPincode,
	FieldAssessmentYear,
	FieldGrossIncome,
	FieldTaxDeducted,
}

// Document type hints understood by FieldsForDocument.
const (
	DocumentIDCard  = "id_card"
	DocumentTaxForm = "tax_form"
)

var (
	idCardFields = []Field{
		FieldName, FieldFatherName, FieldDateOfBirth, FieldGender,
		FieldIDNumber, FieldAddress, FieldPincode, FieldPhone,
	}
	taxFormFields = []Field{
		FieldName, FieldPAN, FieldAssessmentYear, FieldGrossIncome,
		FieldTaxDeducted, FieldAddress, FieldEmail,
	}
	standardFields = []Field{
		FieldName, FieldDateOfBirth, FieldIDNumber, FieldPAN,
		FieldAddress, FieldEmail, FieldPhone, FieldGrossIncome, FieldTaxDeducted,
	}
)

func AllFieldNames() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// FieldsForDocument returns the default field set for a document type hint.
// Unknown or empty hints get the standard set.
func FieldsForDocument(hint string) []Field {
	var src []Field
	switch CanonicalDocumentType(hint) {
	case DocumentIDCard:
		src = idCardFields
	case DocumentTaxForm:
		src = taxFormFields
	default:
		src = standardFields
	}
	return append([]Field(nil), src...)
}

// CanonicalDocumentType folds common spellings of a hint; unknown hints pass through lowercased.
func CanonicalDocumentType(hint string) string {
	normalized := strings.ToLower(strings.TrimSpace(hint))

	synonyms := map[string]string{
		"aadhaar":     DocumentIDCard,
		"aadhar":      DocumentIDCard,
		"id":          DocumentIDCard,
		"idcard":      DocumentIDCard,
		"id card":     DocumentIDCard,
		"id_card":     DocumentIDCard,
		"national_id": DocumentIDCard,
		"form16":      DocumentTaxForm,
		"form 16":     DocumentTaxForm,
		"form-16":     DocumentTaxForm,
		"itr":         DocumentTaxForm,
		"tax":         DocumentTaxForm,
		"tax_form":    DocumentTaxForm,
		"tax form":    DocumentTaxForm,
	}
	if dt, ok := synonyms[normalized]; ok {
		return dt
	}
	return normalized
}

// CanonicalizeField maps a requested field name (or a common alias) to a Field.
func CanonicalizeField(input string) (Field, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	synonyms := map[string]Field{
		"full_name":    FieldName,
		"dob":          FieldDateOfBirth,
		"birth_date":   FieldDateOfBirth,
		"sex":          FieldGender,
		"aadhaar":      FieldIDNumber,
		"aadhaar_no":   FieldIDNumber,
		"id":           FieldIDNumber,
		"pan":          FieldPAN,
		"mobile":       FieldPhone,
		"phone_number": FieldPhone,
		"pin":          FieldPincode,
		"postal_code":  FieldPincode,
		"ay":           FieldAssessmentYear,
		"gross_salary": FieldGrossIncome,
		"tds":          FieldTaxDeducted,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, true
	}

	for _, f := range allFields {
		if normalized == string(f) {
			return f, true
		}
	}
	return "", false
}
