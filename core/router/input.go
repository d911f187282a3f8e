package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/pkg/envelope"
)

// MaxBodyBytes caps the size of a mutation body.
const MaxBodyBytes = 10 << 20

// readInput returns the unvalidated input of a request: the query string
// for queries and the decoded JSON body for mutations.
func readInput(w http.ResponseWriter, req *http.Request, kind operation.Kind) (any, error) {
	switch kind {
	case operation.KindQuery:
		return QueryInput(req.URL.Query()), nil
	case operation.KindMutation:
		return bodyInput(w, req)
	}
	return nil, fmt.Errorf("read input: unsupported kind %s", kind)
}

// QueryInput converts query parameters to a map. A parameter given once
// maps to its string value; a repeated parameter maps to []string.
func QueryInput(q url.Values) map[string]any {
	out := make(map[string]any, len(q))
	for k, vs := range q {
		switch len(vs) {
		case 0:
		case 1:
			out[k] = vs[0]
		default:
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

func bodyInput(w http.ResponseWriter, req *http.Request) (any, error) {
	if req.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, envelope.New(http.StatusRequestEntityTooLarge, "Request body too large")
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, envelope.Wrap(http.StatusBadRequest, "Malformed JSON in request body", err)
	}
	return v, nil
}
