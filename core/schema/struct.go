package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// StructSchema decodes raw input into T and checks its validate tags.
type StructSchema[T any] struct {
	validate *validator.Validate
	isStruct bool
}

// Struct builds a schema producing values of type T.
// Field names in issues use the json tag name.
func Struct[T any]() *StructSchema[T] {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	var zero T
	t := reflect.TypeOf(zero)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return &StructSchema[T]{
		validate: v,
		isStruct: t != nil && t.Kind() == reflect.Struct,
	}
}

// Parse returns a T.
func (s *StructSchema[T]) Parse(raw any) (any, error) {
	if raw == nil {
		return nil, Invalid("", "expected object, received null")
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, Invalid("", "input is not serializable")
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, Invalid(typeErr.Field, fmt.Sprintf("must be %s", typeErr.Type.Kind()))
		}
		return nil, Invalid("", err.Error())
	}

	if !s.isStruct {
		return out, nil
	}

	if err := s.validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, Invalid("", err.Error())
		}
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			verr.Add(fieldPath(fe), fe.Tag(), fe.Value(), tagMessage(fe))
		}
		return nil, verr
	}

	return out, nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "email":
		return "invalid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hexcolor":
		return "must be a hex color"
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}
