package app

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/pkg/envelope"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

// Context keys set by the middlewares in this file.
const (
	CtxAuth      = "auth"
	CtxUser      = "user"
	CtxRateLimit = "rateLimit"
)

// IdentityFrom returns the verified identity, if any.
func IdentityFrom(v operation.Values) (ports.Identity, bool) {
	return operation.Lookup[ports.Identity](v, CtxAuth)
}

// UserFrom returns the database user, if any.
func UserFrom(v operation.Values) (ports.User, bool) {
	return operation.Lookup[ports.User](v, CtxUser)
}

// Identity verifies the bearer token or session cookie and attaches the
// identity under CtxAuth. Requests without a valid token pass through
// with nothing attached.
func Identity(verifier ports.IdentityVerifier, cookieName string, logger zerolog.Logger) operation.Middleware {
	return func(mc operation.MiddlewareCall) (operation.Values, error) {
		token := bearerToken(mc.Transport.Request().Header.Get("Authorization"))
		if token == "" && cookieName != "" {
			if c, err := mc.Transport.Cookie(cookieName); err == nil {
				token = c.Value
			}
		}
		if token == "" {
			return operation.Values{}, nil
		}

		id, err := verifier.Verify(token)
		if err != nil {
			logger.Debug().Err(err).Msg("identity token rejected")
			return operation.Values{}, nil
		}
		return mc.Next(operation.V(CtxAuth, id)), nil
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequireUser attaches the database user under CtxUser. The user is found
// from the identity attached by Identity or, failing that, from an API key
// in apiKeyHeader. Anything else is rejected with 401.
func RequireUser(users *UserService, apiKeyHeader string) operation.Middleware {
	return func(mc operation.MiddlewareCall) (operation.Values, error) {
		ctx := mc.Context

		if id, ok := IdentityFrom(mc.Ctx); ok {
			u, err := users.Current(ctx, id)
			switch {
			case err == nil:
				return mc.Next(operation.V(CtxUser, u)), nil
			case !errors.Is(err, ports.ErrNotFound):
				return operation.Values{}, err
			}
		}

		if apiKeyHeader != "" {
			if raw := mc.Transport.Request().Header.Get(apiKeyHeader); raw != "" {
				u, err := users.AuthenticateAPIKey(ctx, raw)
				switch {
				case err == nil:
					return mc.Next(operation.V(CtxUser, u)), nil
				case errors.Is(err, ErrInvalidAPIKey):
					return operation.Values{}, envelope.Unauthorized("Invalid API key")
				default:
					return operation.Values{}, err
				}
			}
		}

		return operation.Values{}, envelope.Unauthorized("")
	}
}

// RateLimit takes a token from the caller's bucket. The caller is the
// database user when one is attached, otherwise the remote address.
func RateLimit(rl *RateLimiter) operation.Middleware {
	return func(mc operation.MiddlewareCall) (operation.Values, error) {
		if !rl.Enabled() {
			return operation.Values{}, nil
		}

		key := "addr:" + mc.Transport.Request().RemoteAddr
		if u, ok := UserFrom(mc.Ctx); ok {
			key = "user:" + u.ID
		}

		state, allowed := rl.Allow(key)
		h := mc.Transport.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(state.Burst))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(state.Remaining))

		if !allowed {
			retry := int(math.Ceil(rl.RetryAfter(key).Seconds()))
			if retry < 1 {
				retry = 1
			}
			h.Set("Retry-After", strconv.Itoa(retry))
			return operation.Values{}, envelope.TooManyRequests("")
		}
		return mc.Next(operation.V(CtxRateLimit, state)), nil
	}
}
