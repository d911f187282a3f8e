package schema

import (
	"strings"
)

// Schema validates raw input and returns the parsed value.
// Implementations return *ValidationError when raw is rejected.
type Schema interface {
	Parse(raw any) (any, error)
}

// Func adapts a plain function to Schema.
type Func func(raw any) (any, error)

// Parse calls f.
func (f Func) Parse(raw any) (any, error) {
	return f(raw)
}

// Issue describes one rejected field.
type Issue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// ValidationError is returned by Parse when input does not satisfy a schema.
type ValidationError struct {
	Issues []Issue
}

// Add records an issue.
func (e *ValidationError) Add(field, code string, value any, message string) {
	e.Issues = append(e.Issues, Issue{
		Field:   field,
		Code:    code,
		Value:   value,
		Message: message,
	})
}

// Error returns the issues joined into one human-readable message.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid input"
	}
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.String())
	}
	return strings.Join(msgs, "; ")
}

// orNil returns e when it holds issues.
func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-issue ValidationError.
// Useful inside Func schemas.
func Invalid(field, message string) *ValidationError {
	e := &ValidationError{}
	e.Add(field, "invalid", nil, message)
	return e
}

// Describer is implemented by schemas that can list their fields.
type Describer interface {
	Fields() []Field
}
