// Package hasher hashes API keys before they are stored.
package hasher

import (
	"errors"

	"github.com/artpar/opgate/ports"
	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong is returned for input bcrypt would silently truncate.
var ErrTooLong = errors.New("hasher: input longer than 72 bytes")

const maxInput = 72

// Bcrypt hashes with bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher. Out-of-range costs, zero included,
// use bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	if len(plaintext) > maxInput {
		return nil, ErrTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare reports whether plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	if len(plaintext) > maxInput {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

var _ ports.Hasher = (*Bcrypt)(nil)

// Fake stores the plaintext. Tests only.
type Fake struct{}

// Hash returns plaintext unchanged.
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte(plaintext), nil
}

// Compare checks equality.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return string(hash) == plaintext
}

var _ ports.Hasher = Fake{}
