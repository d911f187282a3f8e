package envelope

import (
	"encoding/json"
	"net/http"
)

// ContentType is the media type of every envelope response.
const ContentType = "application/json"

// Write writes env with the given status.
func Write(w http.ResponseWriter, status int, env Envelope) error {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(env)
}

// WriteHTTPError writes an HTTPError as an envelope.
// Allow is set for 405 responses when methods are given.
func WriteHTTPError(w http.ResponseWriter, err *HTTPError, allow ...string) error {
	if err.Status == http.StatusMethodNotAllowed && len(allow) > 0 {
		v := allow[0]
		for _, m := range allow[1:] {
			v += ", " + m
		}
		w.Header().Set("Allow", v)
	}
	return Write(w, err.Status, err.Envelope())
}

// WriteUnknown writes the fixed 500 envelope.
func WriteUnknown(w http.ResponseWriter) error {
	return Write(w, http.StatusInternalServerError, Unknown())
}
