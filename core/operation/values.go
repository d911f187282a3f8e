package operation

import "sort"

// Values is the request-scoped context accumulated by middleware.
// It is an ordered sequence of key/value insertions: a later insertion of an
// existing key replaces the value in place, keeping the key's first position.
// The zero value is empty and ready to use. Values is immutable; every
// operation that changes it returns a new Values.
type Values struct {
	keys []string
	m    map[string]any
}

// V builds Values from alternating key/value arguments.
// It panics on an odd argument count or a non-string key.
func V(kv ...any) Values {
	if len(kv)%2 != 0 {
		panic("operation.V: odd number of arguments")
	}
	var v Values
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic("operation.V: key must be a string")
		}
		v = v.With(k, kv[i+1])
	}
	return v
}

// FromMap builds Values from m. Keys are inserted in sorted order.
func FromMap(m map[string]any) Values {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var v Values
	for _, k := range keys {
		v = v.With(k, m[k])
	}
	return v
}

// With returns a copy of v with key set to value.
func (v Values) With(key string, value any) Values {
	return Merge(v, Values{keys: []string{key}, m: map[string]any{key: value}})
}

// Get returns the value for key.
func (v Values) Get(key string) (any, bool) {
	val, ok := v.m[key]
	return val, ok
}

// Has reports whether key is set.
func (v Values) Has(key string) bool {
	_, ok := v.m[key]
	return ok
}

// String returns the value for key if it is a string.
func (v Values) String(key string) string {
	s, _ := v.m[key].(string)
	return s
}

// Len returns the number of keys.
func (v Values) Len() int {
	return len(v.keys)
}

// Keys returns the keys in first-insertion order.
func (v Values) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Map returns a copy of the values as a map.
func (v Values) Map() map[string]any {
	out := make(map[string]any, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}

// Merge returns base with every key of update applied on top, in update's
// order. A key present in both takes update's value whole. Neither argument
// is modified. Merge is associative: Merge(Merge(a, b), c) equals
// Merge(a, Merge(b, c)).
func Merge(base, update Values) Values {
	if update.Len() == 0 {
		return base
	}
	if base.Len() == 0 {
		return update
	}

	out := Values{
		keys: make([]string, len(base.keys), len(base.keys)+len(update.keys)),
		m:    make(map[string]any, len(base.m)+len(update.m)),
	}
	copy(out.keys, base.keys)
	for k, val := range base.m {
		out.m[k] = val
	}
	for _, k := range update.keys {
		if _, exists := out.m[k]; !exists {
			out.keys = append(out.keys, k)
		}
		out.m[k] = update.m[k]
	}
	return out
}

// Lookup returns the value for key converted to T.
func Lookup[T any](v Values, key string) (T, bool) {
	val, ok := v.m[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := val.(T)
	return t, ok
}
