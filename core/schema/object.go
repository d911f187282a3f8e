package schema

import (
	"fmt"
	"sort"
)

// ObjectSchema validates a map of named fields.
type ObjectSchema struct {
	fields []Field
	strict bool
}

// Object builds an object schema from fields. Field names must be unique.
func Object(fields ...Field) *ObjectSchema {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name] {
			panic(fmt.Sprintf("schema: duplicate field %q", f.Name))
		}
		seen[f.Name] = true
	}
	return &ObjectSchema{fields: append([]Field(nil), fields...)}
}

// Strict returns a copy of the schema that rejects unknown keys.
func (o *ObjectSchema) Strict() *ObjectSchema {
	return &ObjectSchema{fields: o.fields, strict: true}
}

// Fields returns the declared fields in declaration order.
func (o *ObjectSchema) Fields() []Field {
	return append([]Field(nil), o.fields...)
}

// Parse validates raw and returns a map[string]any holding the coerced
// declared fields. raw may be a map[string]any or a map[string][]string.
func (o *ObjectSchema) Parse(raw any) (any, error) {
	data, ok := asMap(raw)
	if !ok {
		return nil, Invalid("", fmt.Sprintf("expected object, received %s", describe(raw)))
	}

	verr := &ValidationError{}
	out := make(map[string]any, len(o.fields))

	if o.strict {
		known := make(map[string]bool, len(o.fields))
		for _, f := range o.fields {
			known[f.Name] = true
		}
		var unknown []string
		for k := range data {
			if !known[k] {
				unknown = append(unknown, k)
			}
		}
		sort.Strings(unknown)
		for _, k := range unknown {
			verr.Add(k, "unknown_field", nil, fmt.Sprintf("unknown field '%s'", k))
		}
	}

	for _, f := range o.fields {
		value, present := data[f.Name]
		if !present || value == nil {
			switch {
			case f.DefaultValue != nil:
				out[f.Name] = f.DefaultValue
			case f.Required:
				verr.Add(f.Name, "required", nil, "is required")
			}
			continue
		}

		coerced, msg, ok := f.coerce(value)
		if !ok {
			verr.Add(f.Name, "type", value, msg)
			continue
		}

		failed := false
		for _, c := range f.Constraints {
			if issue := c.check(f.Name, coerced); issue != nil {
				verr.Issues = append(verr.Issues, *issue)
				failed = true
			}
		}
		if !failed {
			out[f.Name] = coerced
		}
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func asMap(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[string][]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []any, []string:
		return "array"
	}
	return fmt.Sprintf("%T", raw)
}
