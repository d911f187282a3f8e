package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FieldType identifies how a field's raw value is coerced.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInt     FieldType = "int"
	FieldTypeFloat   FieldType = "float"
	FieldTypeBool    FieldType = "bool"
	FieldTypeEmail   FieldType = "email"
	FieldTypeURL     FieldType = "url"
	FieldTypeUUID    FieldType = "uuid"
	FieldTypeEnum    FieldType = "enum"
	FieldTypeStrings FieldType = "strings"
	FieldTypeAny     FieldType = "any"
)

// Field describes one key of an object schema.
// Fields are values; the builder methods return modified copies.
type Field struct {
	Name         string
	Type         FieldType
	Required     bool
	DefaultValue any
	Values       []string
	Constraints  []Constraint
	Description  string
}

func newField(name string, t FieldType) Field {
	return Field{Name: name, Type: t, Required: true}
}

// String declares a required string field.
func String(name string) Field { return newField(name, FieldTypeString) }

// Int declares a required integer field.
func Int(name string) Field { return newField(name, FieldTypeInt) }

// Float declares a required number field.
func Float(name string) Field { return newField(name, FieldTypeFloat) }

// Bool declares a required boolean field.
func Bool(name string) Field { return newField(name, FieldTypeBool) }

// Email declares a required email address field.
func Email(name string) Field { return newField(name, FieldTypeEmail) }

// URL declares a required absolute URL field.
func URL(name string) Field { return newField(name, FieldTypeURL) }

// UUID declares a required UUID field.
func UUID(name string) Field { return newField(name, FieldTypeUUID) }

// Strings declares a required list-of-strings field.
func Strings(name string) Field { return newField(name, FieldTypeStrings) }

// Any declares a required field accepted as-is.
func Any(name string) Field { return newField(name, FieldTypeAny) }

// Enum declares a required field restricted to values.
func Enum(name string, values ...string) Field {
	f := newField(name, FieldTypeEnum)
	f.Values = values
	return f
}

// Optional marks the field as not required.
func (f Field) Optional() Field {
	f.Required = false
	return f
}

// Default sets the value used when the field is absent. It implies Optional.
func (f Field) Default(v any) Field {
	f.DefaultValue = v
	f.Required = false
	return f
}

// With appends constraints.
func (f Field) With(cs ...Constraint) Field {
	f.Constraints = append(append([]Constraint(nil), f.Constraints...), cs...)
	return f
}

// Describe sets the human description used in API docs.
func (f Field) Describe(text string) Field {
	f.Description = text
	return f
}

// coerce converts raw into the field's Go representation.
// The returned string is the failure message when ok is false.
func (f Field) coerce(raw any) (any, string, bool) {
	if f.Type != FieldTypeStrings && f.Type != FieldTypeAny {
		raw = single(raw)
	}

	switch f.Type {
	case FieldTypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string", false
		}
		return s, "", true

	case FieldTypeInt:
		switch n := raw.(type) {
		case int:
			return n, "", true
		case int64:
			return int(n), "", true
		case float64:
			if n != math.Trunc(n) {
				return nil, "must be an integer", false
			}
			return int(n), "", true
		case json.Number:
			i, err := strconv.Atoi(n.String())
			if err != nil {
				return nil, "must be an integer", false
			}
			return i, "", true
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, "must be an integer", false
			}
			return i, "", true
		}
		return nil, "must be an integer", false

	case FieldTypeFloat:
		switch n := raw.(type) {
		case string:
			v, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil, "must be a number", false
			}
			return v, "", true
		case json.Number:
			v, err := n.Float64()
			if err != nil {
				return nil, "must be a number", false
			}
			return v, "", true
		}
		v, err := toFloat64(raw)
		if err != nil {
			return nil, "must be a number", false
		}
		return v, "", true

	case FieldTypeBool:
		switch b := raw.(type) {
		case bool:
			return b, "", true
		case string:
			v, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, "must be a boolean", false
			}
			return v, "", true
		}
		return nil, "must be a boolean", false

	case FieldTypeEmail:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string", false
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, "invalid email address", false
		}
		return s, "", true

	case FieldTypeURL:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string", false
		}
		u, err := url.ParseRequestURI(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, "invalid URL", false
		}
		return s, "", true

	case FieldTypeUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string", false
		}
		if _, err := uuid.Parse(s); err != nil {
			return nil, "invalid UUID format", false
		}
		return s, "", true

	case FieldTypeEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, "must be a string", false
		}
		for _, v := range f.Values {
			if v == s {
				return s, "", true
			}
		}
		return nil, fmt.Sprintf("must be one of: %s", strings.Join(f.Values, ", ")), false

	case FieldTypeStrings:
		switch v := raw.(type) {
		case string:
			return []string{v}, "", true
		case []string:
			return append([]string(nil), v...), "", true
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, "must be a list of strings", false
				}
				out = append(out, s)
			}
			return out, "", true
		}
		return nil, "must be a list of strings", false
	}

	return raw, "", true
}

// single unwraps one-element query value lists.
func single(raw any) any {
	if vs, ok := raw.([]string); ok && len(vs) == 1 {
		return vs[0]
	}
	return raw
}
