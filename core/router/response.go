package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
)

// Responder is a handler result that writes its own response. Values that
// implement it are passed through untouched.
type Responder interface {
	WriteResponse(w http.ResponseWriter) error
}

// IsRawResponse reports whether a handler result is already a full response.
func IsRawResponse(v any) (Responder, bool) {
	switch r := v.(type) {
	case *Response:
		if r == nil {
			return nil, false
		}
		return r, true
	case Responder:
		if isNilPointer(r) {
			return nil, false
		}
		return r, true
	}
	return nil, false
}

// isNilPointer reports whether v holds a typed nil. Such results are
// encoded as JSON null instead of being asked to write themselves.
func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Response is a complete HTTP response built by a handler.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	err error
}

// JSON builds a response with v encoded as JSON. It is the way to return a
// failure with a chosen status without raising an error.
func JSON(status int, v any) *Response {
	resp := &Response{Status: status, Header: http.Header{}}
	resp.Header.Set("Content-Type", "application/json")

	body, err := json.Marshal(v)
	if err != nil {
		resp.err = fmt.Errorf("encode response: %w", err)
		return resp
	}
	resp.Body = append(body, '\n')
	return resp
}

// NoContent builds an empty 204 response.
func NoContent() *Response {
	return &Response{Status: http.StatusNoContent, Header: http.Header{}}
}

// Redirect builds a redirect to url. A status outside 3xx becomes 302.
func Redirect(url string, status int) *Response {
	if status < 300 || status > 399 {
		status = http.StatusFound
	}
	resp := &Response{Status: status, Header: http.Header{}}
	resp.Header.Set("Location", url)
	return resp
}

// WriteResponse implements Responder.
func (r *Response) WriteResponse(w http.ResponseWriter) error {
	if r.err != nil {
		return r.err
	}
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status < 100 || status > 999 {
		return fmt.Errorf("invalid response status %d", r.Status)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(status)
	if len(r.Body) > 0 {
		if _, err := w.Write(r.Body); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return nil
}

// writeResult writes a handler result: raw responses verbatim, anything
// else as JSON with status 200.
func writeResult(w http.ResponseWriter, out any) error {
	if resp, ok := IsRawResponse(out); ok {
		return resp.WriteResponse(w)
	}
	return JSON(http.StatusOK, out).WriteResponse(w)
}
