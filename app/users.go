package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/artpar/opgate/domain/key"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

// ErrInvalidAPIKey is returned when an API key is malformed or unknown.
var ErrInvalidAPIKey = errors.New("invalid api key")

// ErrNoEmail is returned by Sync when the identity carries no email.
var ErrNoEmail = errors.New("no email on auth user")

const apiKeyAttempts = 3

// UserService syncs identities into database users and manages their
// API keys.
type UserService struct {
	users     ports.UserStore
	hasher    ports.Hasher
	random    ports.Random
	ids       ports.IDGenerator
	clock     ports.Clock
	keyPrefix string
	quota     atomic.Int64
	logger    zerolog.Logger
}

// UserServiceConfig holds the UserService collaborators.
type UserServiceConfig struct {
	Users        ports.UserStore
	Hasher       ports.Hasher
	Random       ports.Random
	IDs          ports.IDGenerator
	Clock        ports.Clock
	APIKeyPrefix string
	DefaultQuota int
	Logger       zerolog.Logger
}

// NewUserService creates a user service.
func NewUserService(cfg UserServiceConfig) *UserService {
	s := &UserService{
		users:     cfg.Users,
		hasher:    cfg.Hasher,
		random:    cfg.Random,
		ids:       cfg.IDs,
		clock:     cfg.Clock,
		keyPrefix: cfg.APIKeyPrefix,
		logger:    cfg.Logger,
	}
	s.quota.Store(int64(cfg.DefaultQuota))
	return s
}

// SetDefaultQuota changes the quota given to users created from now on.
func (s *UserService) SetDefaultQuota(n int) {
	s.quota.Store(int64(n))
}

// DefaultQuota returns the quota given to new users.
func (s *UserService) DefaultQuota() int {
	return int(s.quota.Load())
}

// Sync makes sure a database user exists for the identity. Lookup is by
// external ID first, then by email, otherwise a new user is created.
func (s *UserService) Sync(ctx context.Context, id ports.Identity) (ports.User, error) {
	if id.Email == "" {
		return ports.User{}, ErrNoEmail
	}

	u, err := s.users.GetByExternalID(ctx, id.ExternalID)
	switch {
	case err == nil:
		if u.Email == id.Email {
			return u, nil
		}
		u.Email = id.Email
		u.UpdatedAt = s.clock.Now()
		if err := s.users.Update(ctx, u); err != nil {
			return ports.User{}, fmt.Errorf("update email: %w", err)
		}
		s.logger.Info().Str("user_id", u.ID).Msg("user email updated from identity")
		return u, nil
	case !errors.Is(err, ports.ErrNotFound):
		return ports.User{}, fmt.Errorf("lookup by external id: %w", err)
	}

	u, err = s.users.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		u.ExternalID = id.ExternalID
		u.UpdatedAt = s.clock.Now()
		if err := s.users.Update(ctx, u); err != nil {
			return ports.User{}, fmt.Errorf("link external id: %w", err)
		}
		s.logger.Info().Str("user_id", u.ID).Msg("user linked to identity")
		return u, nil
	case !errors.Is(err, ports.ErrNotFound):
		return ports.User{}, fmt.Errorf("lookup by email: %w", err)
	}

	now := s.clock.Now()
	u = ports.User{
		ID:         s.ids.New(),
		ExternalID: id.ExternalID,
		Email:      id.Email,
		QuotaLimit: s.DefaultQuota(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			// Lost a race with a concurrent sync of the same identity.
			if existing, lerr := s.users.GetByExternalID(ctx, id.ExternalID); lerr == nil {
				return existing, nil
			}
		}
		return ports.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID).Msg("user created from identity")
	return u, nil
}

// Current returns the user for an identity without creating one.
func (s *UserService) Current(ctx context.Context, id ports.Identity) (ports.User, error) {
	return s.users.GetByExternalID(ctx, id.ExternalID)
}

// RegenerateAPIKey replaces the user's API key. The raw key is returned
// once and never stored.
func (s *UserService) RegenerateAPIKey(ctx context.Context, u ports.User) (string, ports.User, error) {
	for attempt := 0; attempt < apiKeyAttempts; attempt++ {
		material, err := s.random.String(key.RandomLen)
		if err != nil {
			return "", ports.User{}, fmt.Errorf("generate key: %w", err)
		}
		raw, lookup := key.Build(s.keyPrefix, material)

		hash, err := s.hasher.Hash(raw)
		if err != nil {
			return "", ports.User{}, fmt.Errorf("hash key: %w", err)
		}

		u.APIKeyHash = hash
		u.APIKeyPrefix = lookup
		u.UpdatedAt = s.clock.Now()

		err = s.users.Update(ctx, u)
		if err == nil {
			s.logger.Info().Str("user_id", u.ID).Str("prefix", lookup).Msg("api key regenerated")
			return raw, u, nil
		}
		if !errors.Is(err, ports.ErrDuplicate) {
			return "", ports.User{}, fmt.Errorf("store key: %w", err)
		}
	}
	return "", ports.User{}, fmt.Errorf("store key: %w", ports.ErrDuplicate)
}

// AuthenticateAPIKey returns the user owning rawKey.
func (s *UserService) AuthenticateAPIKey(ctx context.Context, rawKey string) (ports.User, error) {
	lookup, ok := key.ValidateFormat(rawKey, s.keyPrefix)
	if !ok {
		return ports.User{}, ErrInvalidAPIKey
	}

	u, err := s.users.GetByAPIKeyPrefix(ctx, lookup)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.User{}, ErrInvalidAPIKey
		}
		return ports.User{}, err
	}

	if !s.hasher.Compare(u.APIKeyHash, rawKey) {
		return ports.User{}, ErrInvalidAPIKey
	}
	return u, nil
}
