package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/artpar/opgate/adapters/sqlite"
	"github.com/artpar/opgate/ports"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "opgate-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("applied migrations = %d, want 1", count)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

// -----------------------------------------------------------------------------
// UserStore Tests
// -----------------------------------------------------------------------------

func TestUserStore_CreateAndGet(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	user := ports.User{
		ID:         "user-1",
		ExternalID: "idp_1",
		Email:      "test@example.com",
		QuotaLimit: 100,
	}
	if err := store.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	lookups := []struct {
		name string
		get  func() (ports.User, error)
	}{
		{"by id", func() (ports.User, error) { return store.Get(ctx, "user-1") }},
		{"by external id", func() (ports.User, error) { return store.GetByExternalID(ctx, "idp_1") }},
		{"by email", func() (ports.User, error) { return store.GetByEmail(ctx, "test@example.com") }},
	}
	for _, tt := range lookups {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if err != nil {
				t.Fatalf("get user: %v", err)
			}
			if got.ID != user.ID || got.ExternalID != user.ExternalID || got.Email != user.Email {
				t.Errorf("got %+v", got)
			}
			if got.QuotaLimit != 100 {
				t.Errorf("QuotaLimit = %d, want 100", got.QuotaLimit)
			}
			if got.CreatedAt.IsZero() {
				t.Error("CreatedAt not set")
			}
		})
	}
}

func TestUserStore_NotFound(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByExternalID(ctx, "missing"); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("GetByExternalID() error = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, ports.User{ID: "missing", Email: "x@example.com"}); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestUserStore_Duplicate(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.Create(ctx, ports.User{ID: "u1", Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		name string
		user ports.User
	}{
		{"same id", ports.User{ID: "u1", Email: "b@example.com"}},
		{"same email", ports.User{ID: "u2", Email: "a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Create(ctx, tt.user); !errors.Is(err, sqlite.ErrDuplicate) {
				t.Errorf("Create() error = %v, want ErrDuplicate", err)
			}
		})
	}
}

func TestUserStore_UsersWithoutExternalID(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	// external_id is unique but optional; legacy rows have none.
	for _, id := range []string{"u1", "u2"} {
		if err := store.Create(ctx, ports.User{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
}

func TestUserStore_Update(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if err := store.Create(ctx, ports.User{ID: "u1", Email: "old@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	u.Email = "new@example.com"
	u.ExternalID = "idp_9"
	u.APIKeyHash = []byte("hash")
	u.APIKeyPrefix = "og_abcdef"
	if err := store.Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetByAPIKeyPrefix(ctx, "og_abcdef")
	if err != nil {
		t.Fatalf("get by prefix: %v", err)
	}
	if got.Email != "new@example.com" || got.ExternalID != "idp_9" || string(got.APIKeyHash) != "hash" {
		t.Errorf("got %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Errorf("UpdatedAt %v before CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}
}

func TestUserStore_UpdateConflict(t *testing.T) {
	store := sqlite.NewUserStore(setupTestDB(t))
	ctx := context.Background()

	store.Create(ctx, ports.User{ID: "u1", Email: "a@example.com"})
	store.Create(ctx, ports.User{ID: "u2", Email: "b@example.com"})

	err := store.Update(ctx, ports.User{ID: "u2", Email: "a@example.com"})
	if !errors.Is(err, sqlite.ErrDuplicate) {
		t.Errorf("Update() error = %v, want ErrDuplicate", err)
	}
}

// -----------------------------------------------------------------------------
// CategoryStore Tests
// -----------------------------------------------------------------------------

func setupCategories(t *testing.T) (*sqlite.CategoryStore, context.Context) {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	users := sqlite.NewUserStore(db)
	for _, id := range []string{"u1", "u2"} {
		if err := users.Create(ctx, ports.User{ID: id, Email: id + "@example.com", QuotaLimit: 10}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	return sqlite.NewCategoryStore(db), ctx
}

func TestCategoryStore_CreateList(t *testing.T) {
	store, ctx := setupCategories(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cats := []ports.Category{
		{ID: "c1", UserID: "u1", Name: "sale", Color: 0xFF0000, Emoji: "💰", CreatedAt: base},
		{ID: "c2", UserID: "u1", Name: "signup", Color: 0x00FF00, CreatedAt: base.Add(time.Hour)},
		{ID: "c3", UserID: "u2", Name: "sale", Color: 0x0000FF, CreatedAt: base},
	}
	for _, c := range cats {
		if err := store.Create(ctx, c, 10); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}

	list, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].Name != "signup" || list[1].Name != "sale" {
		t.Errorf("order = %s, %s; want newest first", list[0].Name, list[1].Name)
	}
	if list[1].Emoji != "💰" || list[1].Color != 0xFF0000 {
		t.Errorf("sale = %+v", list[1])
	}
	if list[0].Emoji != "" {
		t.Errorf("signup emoji = %q, want empty", list[0].Emoji)
	}
}

func TestCategoryStore_Limit(t *testing.T) {
	store, ctx := setupCategories(t)

	for _, name := range []string{"a", "b"} {
		if err := store.Create(ctx, ports.Category{ID: "u1-" + name, UserID: "u1", Name: name}, 2); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if err := store.Create(ctx, ports.Category{ID: "u1-c", UserID: "u1", Name: "c"}, 2); !errors.Is(err, sqlite.ErrLimit) {
		t.Errorf("Create() over limit error = %v, want ErrLimit", err)
	}
	if err := store.Create(ctx, ports.Category{ID: "u2-a", UserID: "u2", Name: "a"}, 1); err != nil {
		t.Errorf("limit should be per user: %v", err)
	}
	if err := store.Create(ctx, ports.Category{ID: "u2-z", UserID: "u2", Name: "z"}, 0); !errors.Is(err, sqlite.ErrLimit) {
		t.Errorf("Create() with zero limit error = %v, want ErrLimit", err)
	}

	list, err := store.List(ctx, "u1")
	if err != nil || len(list) != 2 {
		t.Errorf("List(u1) = %d categories, %v; want 2", len(list), err)
	}
}

func TestCategoryStore_LimitConcurrent(t *testing.T) {
	store, ctx := setupCategories(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("cat-%d", i)
			errs <- store.Create(ctx, ports.Category{ID: name, UserID: "u1", Name: name}, 3)
		}(i)
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		switch {
		case err == nil:
			created++
		case !errors.Is(err, sqlite.ErrLimit):
			t.Errorf("Create() error = %v", err)
		}
	}
	if created != 3 {
		t.Errorf("created %d categories, want 3", created)
	}
}

func TestCategoryStore_ListEmpty(t *testing.T) {
	store, ctx := setupCategories(t)

	list, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", list)
	}
}

func TestCategoryStore_DuplicateName(t *testing.T) {
	store, ctx := setupCategories(t)

	if err := store.Create(ctx, ports.Category{ID: "c1", UserID: "u1", Name: "sale"}, 10); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := store.Create(ctx, ports.Category{ID: "c2", UserID: "u1", Name: "sale"}, 10)
	if !errors.Is(err, sqlite.ErrDuplicate) {
		t.Errorf("Create() error = %v, want ErrDuplicate", err)
	}
}

func TestCategoryStore_GetAndDelete(t *testing.T) {
	store, ctx := setupCategories(t)

	if err := store.Create(ctx, ports.Category{ID: "c1", UserID: "u1", Name: "sale", Color: 1}, 10); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, "u1", "sale")
	if err != nil || got.ID != "c1" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if _, err := store.Get(ctx, "u2", "sale"); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Get() for other user error = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "u2", "sale"); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Delete() for other user error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "u1", "sale"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "u1", "sale"); !errors.Is(err, sqlite.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCategoryStore_ForeignKey(t *testing.T) {
	store, ctx := setupCategories(t)

	err := store.Create(ctx, ports.Category{ID: "c1", UserID: "ghost", Name: "sale"}, 10)
	if err == nil {
		t.Error("Create() for unknown user should fail")
	}
}
