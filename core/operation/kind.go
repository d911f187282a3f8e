package operation

import (
	"fmt"
	"net/http"
)

// Kind tags an operation as a query or a mutation.
type Kind uint8

const (
	// KindQuery reads state. Served with GET; input comes from the query string.
	KindQuery Kind = iota + 1
	// KindMutation changes state. Served with POST; input comes from the body.
	KindMutation
)

// String returns "query" or "mutation".
func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindMutation:
		return "mutation"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k == KindQuery || k == KindMutation
}

// Method returns the HTTP method that serves operations of this kind.
func (k Kind) Method() string {
	switch k {
	case KindQuery:
		return http.MethodGet
	case KindMutation:
		return http.MethodPost
	}
	panic(fmt.Sprintf("operation: invalid kind %d", uint8(k)))
}

// ParseKind parses "query" or "mutation".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "query":
		return KindQuery, nil
	case "mutation":
		return KindMutation, nil
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}
