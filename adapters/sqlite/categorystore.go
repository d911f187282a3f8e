package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/artpar/opgate/ports"
)

// CategoryStore implements ports.CategoryStore using SQLite.
type CategoryStore struct {
	db *DB
}

// NewCategoryStore creates a new SQLite category store.
func NewCategoryStore(db *DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// List returns the user's categories, newest first.
func (s *CategoryStore) List(ctx context.Context, userID string) ([]ports.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, emoji, created_at, updated_at
		FROM event_categories
		WHERE user_id = ?
		ORDER BY created_at DESC, name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []ports.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Get retrieves a category by name.
func (s *CategoryStore) Get(ctx context.Context, userID, name string) (ports.Category, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, color, emoji, created_at, updated_at
		FROM event_categories
		WHERE user_id = ? AND name = ?
	`, userID, name)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Category{}, ErrNotFound
	}
	return c, err
}

// Create stores a new category if the user has fewer than limit. The count
// runs inside the INSERT, which holds the write lock, so concurrent creates
// cannot overshoot the limit.
func (s *CategoryStore) Create(ctx context.Context, c ports.Category, limit int) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO event_categories (id, user_id, name, color, emoji, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM event_categories WHERE user_id = ?) < ?
	`, c.ID, c.UserID, c.Name, c.Color, nullString(c.Emoji), c.CreatedAt, c.UpdatedAt, c.UserID, limit)
	if isUniqueConstraintError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLimit
	}
	return nil
}

// Delete removes a category by name.
func (s *CategoryStore) Delete(ctx context.Context, userID, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM event_categories WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
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

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (ports.Category, error) {
	var c ports.Category
	var emoji sql.NullString

	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &emoji, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return ports.Category{}, err
	}
	c.Emoji = emoji.String
	return c, nil
}

// Ensure interface compliance.
var _ ports.CategoryStore = (*CategoryStore)(nil)
