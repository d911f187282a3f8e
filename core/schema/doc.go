/*
Package schema validates and coerces raw operation input.

A Schema turns the raw value read from a request (a map of query parameters
or a decoded JSON body) into the value handed to an operation's handler.
Failures are reported as *ValidationError and never reach the handler.

# Object schemas

Object schemas are built from typed fields:

	schema.Object(
		schema.String("name").With(schema.MinLength(1), schema.MaxLength(64)),
		schema.String("color").With(schema.Pattern(`^#[0-9a-fA-F]{6}$`)),
		schema.String("emoji").Optional(),
	)

Query parameters arrive as strings, so int, float and bool fields accept
their string forms. Unknown keys are dropped unless Strict is set.

# Field Types

  - string:  Text value
  - int:     Integer value
  - float:   Floating-point value
  - bool:    Boolean value
  - email:   Email address (validated)
  - url:     URL (validated)
  - uuid:    UUID
  - enum:    One of a set of values
  - strings: Array of strings (a single query value becomes a one-element array)
  - any:     Passed through untouched

# Struct schemas

Struct decodes the raw value into a Go type and checks its `validate` tags:

	type createInput struct {
		Name string `json:"name" validate:"required,max=64"`
	}

	schema.Struct[createInput]()
*/
package schema
