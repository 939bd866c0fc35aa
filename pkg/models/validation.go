package models

import "fmt"

// ValidationResult is the outcome of validating a submission. A failed validation is
// a normal result, never an error.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Errors []string       `json:"errors"`
	Data   map[string]any `json:"data,omitempty"`
}

// Violations accumulates error messages before they are turned into a ValidationResult.
type Violations []string

// Add appends a formatted message.
func (v *Violations) Add(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

// Result builds the ValidationResult for the accumulated messages.
func (v Violations) Result(data map[string]any) ValidationResult {
	errs := make([]string, len(v))
	copy(errs, v)

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
		Data:   data,
	}
}
