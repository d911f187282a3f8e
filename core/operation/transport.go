package operation

import (
	"net/http"
	"net/url"
)

// Transport is the handle on the underlying HTTP exchange. Middleware and
// handlers use it when a plain JSON result is not enough, for example to set
// cookies or response headers.
type Transport struct {
	w http.ResponseWriter
	r *http.Request

	raw    any
	hasRaw bool
}

// NewTransport wraps a request/response pair.
func NewTransport(w http.ResponseWriter, r *http.Request) *Transport {
	return &Transport{w: w, r: r}
}

// Request returns the incoming request.
func (t *Transport) Request() *http.Request {
	return t.r
}

// Writer returns the response writer.
func (t *Transport) Writer() http.ResponseWriter {
	return t.w
}

// Header returns the response header map.
func (t *Transport) Header() http.Header {
	return t.w.Header()
}

// SetCookie adds a Set-Cookie header to the response.
func (t *Transport) SetCookie(c *http.Cookie) {
	http.SetCookie(t.w, c)
}

// Cookie returns the named request cookie.
func (t *Transport) Cookie(name string) (*http.Cookie, error) {
	return t.r.Cookie(name)
}

// Query returns the parsed URL query.
func (t *Transport) Query() url.Values {
	return t.r.URL.Query()
}

// RawInput returns the unvalidated input parsed before the middleware chain
// ran. It is only set for operations that declare a schema.
func (t *Transport) RawInput() (any, bool) {
	return t.raw, t.hasRaw
}

// SetRawInput records the unvalidated input.
func (t *Transport) SetRawInput(v any) {
	t.raw = v
	t.hasRaw = true
}
