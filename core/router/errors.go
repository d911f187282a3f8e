package router

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/artpar/opgate/core/schema"
	"github.com/artpar/opgate/pkg/envelope"
)

// Outcome classifies how a request ended.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeHTTPError  Outcome = "http_error"
	OutcomeValidation Outcome = "validation"
	OutcomeUnknown    Outcome = "unknown"
)

// Classify returns the outcome for an error returned by dispatch.
// Validation failures share the HTTPException envelope with other expected
// failures but are reported separately. An error without an envelope is
// unknown whatever it wraps, matching the 500 that Normalize writes.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if _, ok := envelope.As(err); !ok {
		return OutcomeUnknown
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return OutcomeValidation
	}
	return OutcomeHTTPError
}

// Normalize maps any error to a status and envelope. Expected failures keep
// their status and message; everything else becomes the fixed 500 body.
func Normalize(err error) (int, envelope.Envelope) {
	if he, ok := envelope.As(err); ok {
		return he.Status, he.Envelope()
	}
	return http.StatusInternalServerError, envelope.Unknown()
}

// PanicError is a recovered panic from middleware or a handler.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// validationFailure turns a schema error into a 400. Schema errors of any
// other type are left alone and end up as unknown failures.
func validationFailure(err error) error {
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return envelope.Wrap(http.StatusBadRequest, ve.Error(), ve)
	}
	return err
}

type statusWriter interface {
	http.ResponseWriter
	Status() int
}

func (r *Router) fail(w statusWriter, req *http.Request, route Route, err error) {
	status, env := Normalize(err)

	ev := r.logger.Debug()
	if status >= http.StatusInternalServerError {
		ev = r.logger.Error()
	}
	ev = ev.Err(err).
		Str("operation", route.Name).
		Str("kind", route.Kind.String()).
		Str("path", req.URL.Path).
		Int("status", status)
	var pe *PanicError
	if errors.As(err, &pe) {
		ev = ev.Bytes("stack", pe.Stack)
	}
	ev.Msg("operation failed")

	if w.Status() != 0 {
		r.logger.Warn().
			Str("operation", route.Name).
			Int("written_status", w.Status()).
			Msg("response already started, error envelope dropped")
		return
	}
	envelope.Write(w, status, env)
}
