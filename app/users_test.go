package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/opgate/adapters/clock"
	"github.com/artpar/opgate/adapters/hasher"
	"github.com/artpar/opgate/adapters/idgen"
	"github.com/artpar/opgate/adapters/random"
	"github.com/artpar/opgate/adapters/sqlite"
	"github.com/artpar/opgate/app"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

func newUserService(t *testing.T) (*app.UserService, *sqlite.UserStore) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := sqlite.NewUserStore(db)
	svc := app.NewUserService(app.UserServiceConfig{
		Users:        store,
		Hasher:       hasher.Fake{},
		Random:       random.NewFake(),
		IDs:          idgen.NewSequential("user-"),
		Clock:        clock.NewFake(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)),
		APIKeyPrefix: "og_",
		DefaultQuota: 100,
		Logger:       zerolog.Nop(),
	})
	return svc, store
}

func TestUserService_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("no email", func(t *testing.T) {
		svc, _ := newUserService(t)
		_, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-1"})
		if !errors.Is(err, app.ErrNoEmail) {
			t.Errorf("Sync() error = %v, want ErrNoEmail", err)
		}
	})

	t.Run("creates", func(t *testing.T) {
		svc, _ := newUserService(t)
		svc.SetDefaultQuota(25)

		u, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-1", Email: "a@example.com"})
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if u.ID != "user-1" || u.QuotaLimit != 25 || u.ExternalID != "ext-1" {
			t.Errorf("user = %+v", u)
		}
	})

	t.Run("updates email for known external id", func(t *testing.T) {
		svc, store := newUserService(t)
		if _, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-1", Email: "old@example.com"}); err != nil {
			t.Fatal(err)
		}

		u, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-1", Email: "new@example.com"})
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if u.ID != "user-1" {
			t.Errorf("ID = %s, want user-1", u.ID)
		}

		stored, err := store.Get(ctx, "user-1")
		if err != nil {
			t.Fatal(err)
		}
		if stored.Email != "new@example.com" {
			t.Errorf("stored email = %s", stored.Email)
		}
	})

	t.Run("links existing email", func(t *testing.T) {
		svc, store := newUserService(t)
		if err := store.Create(ctx, ports.User{ID: "legacy", Email: "a@example.com", QuotaLimit: 7}); err != nil {
			t.Fatal(err)
		}

		u, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-9", Email: "a@example.com"})
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if u.ID != "legacy" || u.ExternalID != "ext-9" || u.QuotaLimit != 7 {
			t.Errorf("user = %+v", u)
		}

		if _, err := store.GetByExternalID(ctx, "ext-9"); err != nil {
			t.Errorf("GetByExternalID() error = %v", err)
		}
	})
}

func TestUserService_APIKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t)

	u, err := svc.Sync(ctx, ports.Identity{ExternalID: "ext-1", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	raw, updated, err := svc.RegenerateAPIKey(ctx, u)
	if err != nil {
		t.Fatalf("RegenerateAPIKey() error = %v", err)
	}
	if !strings.HasPrefix(raw, updated.APIKeyPrefix) || !strings.HasPrefix(raw, "og_") {
		t.Errorf("raw = %q, prefix = %q", raw, updated.APIKeyPrefix)
	}

	got, err := svc.AuthenticateAPIKey(ctx, raw)
	if err != nil {
		t.Fatalf("AuthenticateAPIKey() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %s, want %s", got.ID, u.ID)
	}

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong prefix", "xx_" + raw[3:]},
		{"unknown lookup", "og_" + strings.Repeat("f", 48)},
		{"same lookup wrong secret", raw[:len(raw)-1] + flip(raw[len(raw)-1])},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AuthenticateAPIKey(ctx, tt.key)
			if !errors.Is(err, app.ErrInvalidAPIKey) {
				t.Errorf("AuthenticateAPIKey(%q) error = %v, want ErrInvalidAPIKey", tt.key, err)
			}
		})
	}
}

func flip(c byte) string {
	if c == 'a' {
		return "b"
	}
	return "a"
}
