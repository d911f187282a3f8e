// Package router turns a set of named operations into an http.Handler.
//
// Every operation is served at "/" + name: queries with GET, mutations with
// POST. A request runs the operation's middleware chain, validates input
// against its schema when one is declared, and calls the handler. Failures
// from any step are normalized into the JSON error envelope.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/pkg/envelope"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ErrDuplicateOperation is returned when a name is registered twice.
var ErrDuplicateOperation = errors.New("duplicate operation name")

// Route describes one entry of the route table.
type Route struct {
	Name      string         `json:"name"`
	Method    string         `json:"method"`
	Path      string         `json:"path"`
	Kind      operation.Kind `json:"-"`
	HasSchema bool           `json:"has_schema"`
	Summary   string         `json:"summary,omitempty"`

	op operation.Operation
}

// Operation returns the operation served by the route.
func (r Route) Operation() operation.Operation {
	return r.op
}

// Event is reported to observers once per dispatched request.
type Event struct {
	Name     string
	Path     string
	Kind     operation.Kind
	Status   int
	Outcome  Outcome
	Duration time.Duration
	Err      error
}

// Observer receives dispatch events. Observers run on the request goroutine
// after the response is written.
type Observer func(Event)

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithObserver adds a dispatch observer.
func WithObserver(o Observer) Option {
	return func(r *Router) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

// Router serves registered operations. Registration must finish before the
// router starts serving; the route table is read-only afterwards.
type Router struct {
	mux       chi.Router
	routes    map[string]Route
	methods   map[string][]string
	prefixes  map[string]*Router
	logger    zerolog.Logger
	observers []Observer
}

// New creates an empty router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:      chi.NewRouter(),
		routes:   make(map[string]Route),
		methods:  make(map[string][]string),
		prefixes: make(map[string]*Router),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.mux.NotFound(r.notFound)
	r.mux.MethodNotAllowed(r.methodNotAllowed)
	return r
}

// Build registers every operation in ops, in name order.
func Build(ops map[string]operation.Operation, opts ...Option) (*Router, error) {
	r := New(opts...)

	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := r.Register(name, ops[name]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustBuild is like Build but panics on error.
func MustBuild(ops map[string]operation.Operation, opts ...Option) *Router {
	r, err := Build(ops, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds one operation at "/" + name.
func (r *Router) Register(name string, op operation.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	path := "/" + name
	if _, exists := r.routes[path]; exists {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateOperation)
	}
	for prefix := range r.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return fmt.Errorf("register %q: conflicts with mounted prefix %s", name, prefix)
		}
	}

	route := Route{
		Name:      name,
		Method:    op.Kind().Method(),
		Path:      path,
		Kind:      op.Kind(),
		HasSchema: op.HasSchema(),
		Summary:   op.Summary(),
		op:        op,
	}

	h := r.dispatch(route)
	switch op.Kind() {
	case operation.KindQuery:
		r.mux.Get(path, h)
	case operation.KindMutation:
		r.mux.Post(path, h)
	}

	r.routes[path] = route
	r.methods[path] = []string{route.Method}
	return nil
}

// Routes returns the route table sorted by path. Routes of mounted routers
// carry their prefix.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route)
	}
	for prefix, sub := range r.prefixes {
		for _, route := range sub.Routes() {
			route.Path = prefix + route.Path
			out = append(out, route)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Merge mounts each router under "/" + its prefix and returns the result.
func Merge(routers map[string]*Router, opts ...Option) (*Router, error) {
	r := New(opts...)

	prefixes := make([]string, 0, len(routers))
	for prefix := range routers {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	for _, prefix := range prefixes {
		if err := r.Mount(prefix, routers[prefix]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Mount serves sub under "/" + prefix.
func (r *Router) Mount(prefix string, sub *Router) error {
	if sub == nil {
		return fmt.Errorf("mount %q: nil router", prefix)
	}
	p := "/" + strings.Trim(prefix, "/")
	if p == "/" {
		return fmt.Errorf("mount %q: empty prefix", prefix)
	}
	if _, exists := r.prefixes[p]; exists {
		return fmt.Errorf("mount %q: prefix already mounted", prefix)
	}
	for path := range r.routes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return fmt.Errorf("mount %q: conflicts with operation %s", prefix, path)
		}
	}

	r.mux.Mount(p, sub)
	r.prefixes[p] = sub
	return nil
}

func (r *Router) notFound(w http.ResponseWriter, req *http.Request) {
	envelope.WriteHTTPError(w, envelope.NotFound("operation"))
}

func (r *Router) methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	allowed := r.methods[routePath(req)]
	envelope.WriteHTTPError(w, envelope.MethodNotAllowed(req.Method, allowed), allowed...)
}

// routePath is the request path relative to the router, which differs from
// URL.Path when the router is mounted.
func routePath(req *http.Request) string {
	if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePath != "" {
		return rctx.RoutePath
	}
	return req.URL.Path
}

func (r *Router) dispatch(route Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		err := r.invoke(ww, req, route.op)
		if err != nil {
			r.fail(ww, req, route, err)
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.observe(Event{
			Name:     route.Name,
			Path:     req.URL.Path,
			Kind:     route.Kind,
			Status:   status,
			Outcome:  Classify(err),
			Duration: time.Since(start),
			Err:      err,
		})
	}
}

func (r *Router) observe(ev Event) {
	for _, o := range r.observers {
		o(ev)
	}
}

// invoke runs one operation. Panics are recovered and returned as errors.
func (r *Router) invoke(w http.ResponseWriter, req *http.Request, op operation.Operation) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err = newPanicError(rec)
		}
	}()

	ctx := req.Context()
	t := operation.NewTransport(w, req)

	if op.HasSchema() {
		raw, err := readInput(w, req, op.Kind())
		if err != nil {
			return err
		}
		t.SetRawInput(raw)
	}

	vals, err := operation.RunChain(ctx, t, op.Middlewares())
	if err != nil {
		return err
	}

	var input any
	if op.HasSchema() {
		raw, _ := t.RawInput()
		input, err = op.Schema().Parse(raw)
		if err != nil {
			return validationFailure(err)
		}
	}

	out, err := op.Handler()(operation.NewCall(ctx, vals, t, input, op.HasSchema()))
	if err != nil {
		return err
	}
	return writeResult(w, out)
}
