package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	// Numeric constraints
	ConstraintMin ConstraintType = "min"
	ConstraintMax ConstraintType = "max"

	// String constraints
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty"

	ConstraintOneOf ConstraintType = "one_of"
)

// Constraint is a validation rule applied to an already coerced value.
type Constraint struct {
	Type    ConstraintType
	Value   any
	Message string

	re *regexp.Regexp
}

// Msg returns a copy of c with a custom failure message.
func (c Constraint) Msg(message string) Constraint {
	c.Message = message
	return c
}

// Min requires a numeric value >= n.
func Min(n float64) Constraint {
	return Constraint{Type: ConstraintMin, Value: n}
}

// Max requires a numeric value <= n.
func Max(n float64) Constraint {
	return Constraint{Type: ConstraintMax, Value: n}
}

// MinLength requires a string of at least n characters.
func MinLength(n int) Constraint {
	return Constraint{Type: ConstraintMinLength, Value: n}
}

// MaxLength requires a string of at most n characters.
func MaxLength(n int) Constraint {
	return Constraint{Type: ConstraintMaxLength, Value: n}
}

// Pattern requires a string matching expr. It panics if expr does not compile,
// like regexp.MustCompile, since schemas are built at startup.
func Pattern(expr string) Constraint {
	return Constraint{Type: ConstraintPattern, Value: expr, re: regexp.MustCompile(expr)}
}

// NotEmpty rejects strings that are empty after trimming whitespace.
func NotEmpty() Constraint {
	return Constraint{Type: ConstraintNotEmpty}
}

// OneOf requires the value's string form to be one of values.
func OneOf(values ...string) Constraint {
	return Constraint{Type: ConstraintOneOf, Value: values}
}

// check validates value against c. It is a pure function.
func (c Constraint) check(field string, value any) *Issue {
	switch c.Type {
	case ConstraintMin:
		bound, _ := toFloat64(c.Value)
		if v, err := toFloat64(value); err == nil && v < bound {
			return c.issue(field, value, fmt.Sprintf("must be at least %v", bound))
		}
	case ConstraintMax:
		bound, _ := toFloat64(c.Value)
		if v, err := toFloat64(value); err == nil && v > bound {
			return c.issue(field, value, fmt.Sprintf("must be at most %v", bound))
		}
	case ConstraintMinLength:
		n, _ := c.Value.(int)
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) < n {
			return c.issue(field, value, fmt.Sprintf("must be at least %d characters", n))
		}
	case ConstraintMaxLength:
		n, _ := c.Value.(int)
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > n {
			return c.issue(field, value, fmt.Sprintf("must be at most %d characters", n))
		}
	case ConstraintPattern:
		if s, ok := value.(string); ok && c.re != nil && !c.re.MatchString(s) {
			return c.issue(field, value, "does not match required pattern")
		}
	case ConstraintNotEmpty:
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			return c.issue(field, value, "must not be empty")
		}
	case ConstraintOneOf:
		allowed, _ := c.Value.([]string)
		got := fmt.Sprintf("%v", value)
		for _, a := range allowed {
			if a == got {
				return nil
			}
		}
		return c.issue(field, value, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	}
	return nil
}

func (c Constraint) issue(field string, value any, fallback string) *Issue {
	msg := c.Message
	if msg == "" {
		msg = fallback
	}
	return &Issue{Field: field, Code: string(c.Type), Value: value, Message: msg}
}

// toFloat64 converts various numeric types to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
