package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/core/router"
	"github.com/artpar/opgate/domain/key"
	"github.com/artpar/opgate/ports"
)

// SyncStatus is the result of getDatabaseSyncStatus.
type SyncStatus struct {
	IsSynced bool   `json:"isSynced"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

// UserView is the client-facing form of a user.
type UserView struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	QuotaLimit   int       `json:"quotaLimit"`
	HasAPIKey    bool      `json:"hasApiKey"`
	APIKeyPrefix string    `json:"apiKeyPrefix,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUserView converts a user for output.
func NewUserView(u ports.User) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		QuotaLimit:   u.QuotaLimit,
		HasAPIKey:    u.APIKeyPrefix != "",
		APIKeyPrefix: key.Mask(u.APIKeyPrefix),
		CreatedAt:    u.CreatedAt,
	}
}

// APIKeyResult is returned once when a key is issued.
type APIKeyResult struct {
	APIKey string `json:"apiKey"`
	Prefix string `json:"prefix"`
}

// AuthOperations returns the operations mounted under /auth.
func (a *App) AuthOperations() map[string]operation.Operation {
	return map[string]operation.Operation{
		"getDatabaseSyncStatus": a.Public.
			Describe("Create or link the database user for the signed-in identity").
			Query(a.getDatabaseSyncStatus),

		"getCurrentUser": a.Private.
			Describe("Return the signed-in user").
			Query(func(call operation.Call) (any, error) {
				u, _ := UserFrom(call.Ctx)
				return NewUserView(u), nil
			}),

		"regenerateApiKey": a.Private.
			Describe("Issue a new API key, revoking the previous one").
			Mutation(func(call operation.Call) (any, error) {
				u, _ := UserFrom(call.Ctx)
				raw, updated, err := a.Users.RegenerateAPIKey(call.Context, u)
				if err != nil {
					return nil, err
				}
				return APIKeyResult{APIKey: raw, Prefix: updated.APIKeyPrefix}, nil
			}),
	}
}

func (a *App) getDatabaseSyncStatus(call operation.Call) (any, error) {
	id, ok := IdentityFrom(call.Ctx)
	if !ok {
		return SyncStatus{IsSynced: false}, nil
	}

	if _, err := a.Users.Sync(call.Context, id); err != nil {
		if errors.Is(err, ErrNoEmail) {
			return SyncStatus{IsSynced: false, Reason: "No email on auth user"}, nil
		}
		a.logger.Error().Err(err).Str("external_id", id.ExternalID).Msg("user sync failed")
		return router.JSON(http.StatusInternalServerError, SyncStatus{
			IsSynced: false,
			Error:    "SYNC_FAILED",
			Message:  err.Error(),
		}), nil
	}

	return SyncStatus{IsSynced: true}, nil
}
