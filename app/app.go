// Package app holds the application services and the operations that
// expose them through the operation router.
package app

import (
	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/core/router"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

// Deps are the collaborators App needs.
type Deps struct {
	Users      ports.UserStore
	Categories ports.CategoryStore
	Verifier   ports.IdentityVerifier
	Hasher     ports.Hasher
	Random     ports.Random
	IDs        ports.IDGenerator
	Clock      ports.Clock
	Limiter    *RateLimiter

	SessionCookie string
	APIKeyHeader  string
	APIKeyPrefix  string
	DefaultQuota  int

	Logger zerolog.Logger
}

// App bundles the services and the procedures operations are built from.
type App struct {
	Users      *UserService
	Categories *CategoryService
	Limiter    *RateLimiter

	// Public resolves the identity, if any.
	Public operation.Procedure
	// Private also requires a database user and applies rate limits.
	Private operation.Procedure

	logger zerolog.Logger
}

// New creates the application.
func New(d Deps) *App {
	users := NewUserService(UserServiceConfig{
		Users:        d.Users,
		Hasher:       d.Hasher,
		Random:       d.Random,
		IDs:          d.IDs,
		Clock:        d.Clock,
		APIKeyPrefix: d.APIKeyPrefix,
		DefaultQuota: d.DefaultQuota,
		Logger:       d.Logger.With().Str("service", "users").Logger(),
	})

	public := operation.NewProcedure().
		Use(Identity(d.Verifier, d.SessionCookie, d.Logger))
	private := public.
		Use(RequireUser(users, d.APIKeyHeader), RateLimit(d.Limiter))

	return &App{
		Users:      users,
		Categories: NewCategoryService(d.Categories, d.IDs, d.Clock, d.Logger.With().Str("service", "categories").Logger()),
		Limiter:    d.Limiter,
		Public:     public,
		Private:    private,
		logger:     d.Logger,
	}
}

// Router builds the operation routers and mounts them under their
// prefixes: /auth and /category.
func (a *App) Router(opts ...router.Option) (*router.Router, error) {
	auth, err := router.Build(a.AuthOperations(), opts...)
	if err != nil {
		return nil, err
	}
	category, err := router.Build(a.CategoryOperations(), opts...)
	if err != nil {
		return nil, err
	}
	return router.Merge(map[string]*router.Router{
		"auth":     auth,
		"category": category,
	}, opts...)
}
