// Package validate checks request payloads and reports failures as invalid_params entries
package validate

// FieldError one invalid parameter
type FieldError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// NewFieldError .
func NewFieldError(name string, reason string) *FieldError {
	return &FieldError{name, reason}
}

// Validator results are nil when the input is valid
type Validator interface {
	// Struct checks validate tags, fields are named after their json tag
	Struct(s interface{}) []*FieldError
	// Var checks a single value against a tag, eg. "email" or "max=64"
	Var(name string, value interface{}, tag string) []*FieldError
	// AllEmpty fails when every field is empty, names and fields pair up by position
	AllEmpty(names []string, fields ...interface{}) *FieldError
}
