// Package validation checks externally supplied graphs, node steps and
// configuration structs.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the offending fields in order.
func (e ValidationErrors) Fields() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.Field
	}
	return out
}

// MarshalJSON renders {"errors": [...], "count": n}, the body the HTTP
// service returns for invalid input.
func (e ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Errors []ValidationError `json:"errors"`
		Count  int               `json:"count"`
	}{Errors: []ValidationError(e), Count: len(e)})
}
