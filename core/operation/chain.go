package operation

import (
	"context"
	"fmt"
	"sync"
)

// NextFunc merges updates into the shared context and returns the result.
type NextFunc func(updates ...Values) Values

// MiddlewareCall is what a middleware step receives.
type MiddlewareCall struct {
	// Context is the request context.
	Context context.Context
	// Ctx is the context accumulated by earlier steps.
	Ctx Values
	// Next merges a partial context into the shared accumulator for the
	// steps that follow. It may be called any number of times while the
	// step runs and must not be retained after the step returns.
	Next NextFunc
	// Transport gives access to the raw request and response.
	Transport *Transport
}

// Middleware is one step of an operation's pre-processing chain. The
// returned Values, if any, is merged after Next's updates. A non-nil error
// stops the chain.
type Middleware func(mc MiddlewareCall) (Values, error)

// Set returns a middleware that attaches a fixed value under key.
func Set(key string, value any) Middleware {
	return func(mc MiddlewareCall) (Values, error) {
		return mc.Next(V(key, value)), nil
	}
}

// Accumulator is the per-request context store threaded through a chain.
// It only grows: keys are added or replaced, never removed.
type Accumulator struct {
	mu  sync.Mutex
	cur Values
}

// Apply merges update and returns the merged context.
func (a *Accumulator) Apply(update Values) Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cur = Merge(a.cur, update)
	return a.cur
}

// Freeze returns the current context.
func (a *Accumulator) Freeze() Values {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cur
}

// RunChain runs mws in order against a fresh accumulator and returns the
// final context. Steps never overlap. The first failing step stops the
// chain; its error is returned wrapped with the step index.
func RunChain(ctx context.Context, t *Transport, mws []Middleware) (Values, error) {
	acc := &Accumulator{}

	for i, mw := range mws {
		var (
			mu   sync.Mutex
			done bool
		)
		next := func(updates ...Values) Values {
			mu.Lock()
			closed := done
			mu.Unlock()
			if closed {
				return acc.Freeze()
			}
			var merged Values
			for _, u := range updates {
				merged = acc.Apply(u)
			}
			if len(updates) == 0 {
				merged = acc.Freeze()
			}
			return merged
		}

		out, err := mw(MiddlewareCall{
			Context:   ctx,
			Ctx:       acc.Freeze(),
			Next:      next,
			Transport: t,
		})

		mu.Lock()
		done = true
		mu.Unlock()

		if err != nil {
			return Values{}, fmt.Errorf("middleware %d: %w", i, err)
		}
		acc.Apply(out)
	}

	return acc.Freeze(), nil
}
