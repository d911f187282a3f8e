// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"
)

// Store errors. Adapters return these (or wrap them) so callers can test
// with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrLimit     = errors.New("limit reached")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes generates n random bytes.
	Bytes(n int) ([]byte, error)
	// String generates a random string of n characters.
	String(n int) (string, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher hashes secrets such as API keys.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Identity Ports
// -----------------------------------------------------------------------------

// Identity is the authenticated principal as reported by the identity
// provider. It exists before (and independently of) a database user.
type Identity struct {
	ExternalID string
	Email      string
}

// IdentityVerifier validates a bearer or session token.
type IdentityVerifier interface {
	// Verify returns the identity carried by token.
	Verify(token string) (Identity, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// User is an account synced from the identity provider.
type User struct {
	ID           string
	ExternalID   string
	Email        string
	QuotaLimit   int
	APIKeyHash   []byte
	APIKeyPrefix string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (User, error)

	// GetByExternalID retrieves a user by identity provider ID.
	GetByExternalID(ctx context.Context, externalID string) (User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (User, error)

	// GetByAPIKeyPrefix retrieves the user whose API key has prefix.
	GetByAPIKeyPrefix(ctx context.Context, prefix string) (User, error)

	// Create stores a new user.
	Create(ctx context.Context, u User) error

	// Update modifies an existing user.
	Update(ctx context.Context, u User) error
}

// Category groups events of one kind for a user.
type Category struct {
	ID        string
	UserID    string
	Name      string
	Color     int // 0xRRGGBB
	Emoji     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryStore persists event categories. Names are unique per user.
type CategoryStore interface {
	// List returns the user's categories, newest first.
	List(ctx context.Context, userID string) ([]Category, error)

	// Get retrieves a category by name.
	Get(ctx context.Context, userID, name string) (Category, error)

	// Create stores a new category unless the user already has limit
	// categories, in which case it returns ErrLimit. The check and the
	// insert are atomic.
	Create(ctx context.Context, c Category, limit int) error

	// Delete removes a category by name.
	Delete(ctx context.Context, userID, name string) error
}
