// Package random provides Random implementations. Strings are lowercase
// hex, the alphabet API key material is drawn from.
package random

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/artpar/opgate/ports"
)

// Real reads from crypto/rand.
type Real struct{}

// Bytes returns n random bytes.
func (Real) Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// String returns n random hex characters.
func (r Real) String(n int) (string, error) {
	return hexString(r.Bytes, n)
}

var _ ports.Random = Real{}

// Fake returns deterministic bytes; every call differs from the previous
// one in its first byte.
type Fake struct {
	mu    sync.Mutex
	calls int
}

// NewFake creates a fake random source.
func NewFake() *Fake {
	return &Fake{}
}

// Bytes returns n bytes derived from the call count.
func (f *Fake) Bytes(n int) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	seed := f.calls
	f.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = byte(seed + i)
	}
	return b, nil
}

// String returns n hex characters derived from the call count.
func (f *Fake) String(n int) (string, error) {
	return hexString(f.Bytes, n)
}

// Calls reports how many values have been handed out.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ ports.Random = (*Fake)(nil)

func hexString(read func(int) ([]byte, error), n int) (string, error) {
	b, err := read((n + 1) / 2)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:n], nil
}
