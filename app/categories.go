package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/opgate/domain/category"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

// Category errors.
var (
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrQuotaExceeded    = errors.New("category quota exceeded")
)

// NewCategory is the input for creating a category.
type NewCategory struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"required,len=7"`
	Emoji string `json:"emoji,omitempty" validate:"omitempty,max=32"`
}

// CategoryService manages a user's event categories.
type CategoryService struct {
	store  ports.CategoryStore
	ids    ports.IDGenerator
	clock  ports.Clock
	logger zerolog.Logger
}

// NewCategoryService creates a category service.
func NewCategoryService(store ports.CategoryStore, ids ports.IDGenerator, clock ports.Clock, logger zerolog.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// List returns the user's categories, newest first.
func (s *CategoryService) List(ctx context.Context, userID string) ([]ports.Category, error) {
	return s.store.List(ctx, userID)
}

// Create adds a category for u. Name and color are checked against the
// category rules; the user's quota limit caps the number of categories.
func (s *CategoryService) Create(ctx context.Context, u ports.User, in NewCategory) (ports.Category, error) {
	name, colorText, emoji := category.Normalize(in.Name, in.Color, in.Emoji)

	if err := category.ValidateName(name); err != nil {
		return ports.Category{}, err
	}
	color, err := category.ParseColor(colorText)
	if err != nil {
		return ports.Category{}, err
	}
	if err := category.ValidateEmoji(emoji); err != nil {
		return ports.Category{}, err
	}

	now := s.clock.Now()
	c := ports.Category{
		ID:        s.ids.New(),
		UserID:    u.ID,
		Name:      name,
		Color:     color,
		Emoji:     emoji,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, c, u.QuotaLimit); err != nil {
		switch {
		case errors.Is(err, ports.ErrLimit):
			return ports.Category{}, ErrQuotaExceeded
		case errors.Is(err, ports.ErrDuplicate):
			return ports.Category{}, ErrCategoryExists
		}
		return ports.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.logger.Debug().Str("user_id", u.ID).Str("category", name).Msg("category created")
	return c, nil
}

// Delete removes the named category.
func (s *CategoryService) Delete(ctx context.Context, userID, name string) error {
	err := s.store.Delete(ctx, userID, name)
	if errors.Is(err, ports.ErrNotFound) {
		return ErrCategoryNotFound
	}
	return err
}

// HasEvents reports whether the named category has received events.
// Events are not stored yet, so an existing category never has any.
func (s *CategoryService) HasEvents(ctx context.Context, userID, name string) (bool, error) {
	if _, err := s.store.Get(ctx, userID, name); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return false, ErrCategoryNotFound
		}
		return false, err
	}
	return false, nil
}
