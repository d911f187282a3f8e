package operation

import (
	"context"
	"fmt"

	"github.com/artpar/opgate/core/schema"
)

// Call is what a handler receives.
type Call struct {
	// Context is the request context.
	Context context.Context
	// Ctx is the accumulated middleware context, frozen.
	Ctx Values
	// Input is the schema-parsed input. It is nil when the operation has no
	// schema, whatever the request carried.
	Input any
	// Transport gives access to the raw request and response.
	Transport *Transport

	hasInput bool
}

// NewCall builds a Call. The router uses it; tests may too.
func NewCall(ctx context.Context, vals Values, t *Transport, input any, hasInput bool) Call {
	if !hasInput {
		input = nil
	}
	return Call{Context: ctx, Ctx: vals, Input: input, Transport: t, hasInput: hasInput}
}

// HasInput reports whether the operation declared a schema and Input holds
// its result.
func (c Call) HasInput() bool {
	return c.hasInput
}

// InputAs returns Input converted to T.
func InputAs[T any](c Call) (T, bool) {
	var zero T
	if !c.hasInput {
		return zero, false
	}
	v, ok := c.Input.(T)
	return v, ok
}

// Handler performs an operation. The returned value is either written as
// JSON or, when it is already a full response, passed through.
type Handler func(call Call) (any, error)

// Typed adapts a handler that wants its input as T. A missing or mistyped
// input is reported as an error, which the router treats as unexpected.
func Typed[T any](fn func(call Call, in T) (any, error)) Handler {
	return func(call Call) (any, error) {
		in, ok := InputAs[T](call)
		if !ok {
			var zero T
			return nil, fmt.Errorf("operation input is %T, want %T", call.Input, zero)
		}
		return fn(call, in)
	}
}

// Operation is one declared unit of server work. Its fields are fixed at
// construction and never change afterwards.
type Operation struct {
	kind        Kind
	schema      schema.Schema
	middlewares []Middleware
	handler     Handler
	summary     string
}

// Option configures an Operation at construction.
type Option func(*Operation)

// WithSchema sets the input schema.
func WithSchema(s schema.Schema) Option {
	return func(o *Operation) { o.schema = s }
}

// WithMiddleware appends middleware steps.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *Operation) { o.middlewares = append(o.middlewares, mws...) }
}

// WithSummary sets a one-line description used in API docs.
func WithSummary(s string) Option {
	return func(o *Operation) { o.summary = s }
}

// NewQuery declares a query operation.
func NewQuery(h Handler, opts ...Option) Operation {
	return build(KindQuery, h, opts)
}

// NewMutation declares a mutation operation.
func NewMutation(h Handler, opts ...Option) Operation {
	return build(KindMutation, h, opts)
}

func build(kind Kind, h Handler, opts []Option) Operation {
	o := Operation{kind: kind, handler: h}
	for _, opt := range opts {
		opt(&o)
	}
	o.middlewares = append([]Middleware(nil), o.middlewares...)
	return o
}

// Kind returns the operation kind.
func (o Operation) Kind() Kind { return o.kind }

// Schema returns the input schema, or nil.
func (o Operation) Schema() schema.Schema { return o.schema }

// HasSchema reports whether the operation expects input.
func (o Operation) HasSchema() bool { return o.schema != nil }

// Middlewares returns a copy of the middleware list.
func (o Operation) Middlewares() []Middleware {
	return append([]Middleware(nil), o.middlewares...)
}

// Handler returns the handler.
func (o Operation) Handler() Handler { return o.handler }

// Summary returns the doc summary.
func (o Operation) Summary() string { return o.summary }

// Validate reports whether the operation was built by a constructor.
func (o Operation) Validate() error {
	if !o.kind.Valid() {
		return fmt.Errorf("operation has invalid kind %d", uint8(o.kind))
	}
	if o.handler == nil {
		return fmt.Errorf("%s operation has no handler", o.kind)
	}
	for i, mw := range o.middlewares {
		if mw == nil {
			return fmt.Errorf("%s operation middleware %d is nil", o.kind, i)
		}
	}
	return nil
}
