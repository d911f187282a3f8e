package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/opgate/ports"
)

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, external_id, email, quota_limit, api_key_hash, api_key_prefix, created_at, updated_at`

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByExternalID retrieves a user by identity provider ID.
func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
	return scanUser(row)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetByAPIKeyPrefix retrieves the user whose API key has prefix.
func (s *UserStore) GetByAPIKeyPrefix(ctx context.Context, prefix string) (ports.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE api_key_prefix = ?`, prefix)
	return scanUser(row)
}

// Create stores a new user.
func (s *UserStore) Create(ctx context.Context, u ports.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, email, quota_limit, api_key_hash, api_key_prefix, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID, nullString(u.ExternalID), u.Email, u.QuotaLimit, u.APIKeyHash, nullString(u.APIKeyPrefix), u.CreatedAt, u.UpdatedAt)

	if isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

// Update modifies an existing user.
func (s *UserStore) Update(ctx context.Context, u ports.User) error {
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET external_id = ?, email = ?, quota_limit = ?, api_key_hash = ?, api_key_prefix = ?, updated_at = ?
		WHERE id = ?
	`, nullString(u.ExternalID), u.Email, u.QuotaLimit, u.APIKeyHash, nullString(u.APIKeyPrefix), u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (ports.User, error) {
	var u ports.User
	var externalID, prefix sql.NullString

	err := row.Scan(
		&u.ID, &externalID, &u.Email, &u.QuotaLimit, &u.APIKeyHash, &prefix, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.User{}, ErrNotFound
	}
	if err != nil {
		return ports.User{}, err
	}

	u.ExternalID = externalID.String
	u.APIKeyPrefix = prefix.String
	return u, nil
}

// Ensure interface compliance.
var _ ports.UserStore = (*UserStore)(nil)
