package operation

import "github.com/artpar/opgate/core/schema"

// Procedure is a reusable operation prefix: a middleware list and an
// optional schema. Every method returns a new Procedure, so a base
// procedure can be shared:
//
//	public  := operation.NewProcedure().Use(identity)
//	private := public.Use(requireUser)
type Procedure struct {
	middlewares []Middleware
	schema      schema.Schema
	summary     string
}

// NewProcedure returns an empty procedure.
func NewProcedure() Procedure {
	return Procedure{}
}

// Use appends middleware steps.
func (p Procedure) Use(mws ...Middleware) Procedure {
	next := p
	next.middlewares = append(append([]Middleware(nil), p.middlewares...), mws...)
	return next
}

// Input sets the input schema.
func (p Procedure) Input(s schema.Schema) Procedure {
	next := p
	next.schema = s
	return next
}

// Describe sets the summary for the next operation built from p.
func (p Procedure) Describe(summary string) Procedure {
	next := p
	next.summary = summary
	return next
}

// Query finishes the procedure as a query.
func (p Procedure) Query(h Handler) Operation {
	return NewQuery(h, p.options()...)
}

// Mutation finishes the procedure as a mutation.
func (p Procedure) Mutation(h Handler) Operation {
	return NewMutation(h, p.options()...)
}

func (p Procedure) options() []Option {
	opts := []Option{WithMiddleware(p.middlewares...), WithSummary(p.summary)}
	if p.schema != nil {
		opts = append(opts, WithSchema(p.schema))
	}
	return opts
}
