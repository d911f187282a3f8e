package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/opgate/adapters/auth"
	"github.com/artpar/opgate/adapters/clock"
	"github.com/artpar/opgate/adapters/hasher"
	"github.com/artpar/opgate/adapters/idgen"
	"github.com/artpar/opgate/adapters/random"
	"github.com/artpar/opgate/adapters/sqlite"
	"github.com/artpar/opgate/app"
	"github.com/artpar/opgate/ports"
	"github.com/rs/zerolog"
)

const (
	testCookie = "__session"
	testHeader = "X-API-Key"
)

type harness struct {
	app        *app.App
	handler    http.Handler
	tokens     *auth.TokenService
	clock      *clock.Fake
	users      ports.UserStore
	categories *sqlite.CategoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "app-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFake(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	tokens := auth.NewTokenService("test-secret-0123456789abcdef", "opgate-test", time.Hour)
	categories := sqlite.NewCategoryStore(db)

	deps := app.Deps{
		Users:         sqlite.NewUserStore(db),
		Categories:    categories,
		Verifier:      tokens,
		Hasher:        hasher.Fake{},
		Random:        random.NewFake(),
		IDs:           idgen.NewSequential("id-"),
		Clock:         clk,
		Limiter:       app.NewRateLimiter(true, 10, 100, clk),
		SessionCookie: testCookie,
		APIKeyHeader:  testHeader,
		APIKeyPrefix:  "og_",
		DefaultQuota:  100,
		Logger:        zerolog.Nop(),
	}
	a := app.New(deps)
	r, err := a.Router()
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	return &harness{
		app:        a,
		handler:    r,
		tokens:     tokens,
		clock:      clk,
		users:      deps.Users,
		categories: categories,
	}
}

func (h *harness) token(t *testing.T, externalID, email string) string {
	t.Helper()
	tok, _, err := h.tokens.GenerateToken(externalID, email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return tok
}

type request struct {
	method string
	path   string
	body   string
	token  string
	cookie string
	apiKey string
}

func (h *harness) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	method := r.method
	if method == "" {
		method = http.MethodGet
	}
	var req *http.Request
	if r.body != "" {
		req = httptest.NewRequest(method, r.path, strings.NewReader(r.body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, r.path, nil)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: r.cookie})
	}
	if r.apiKey != "" {
		req.Header.Set(testHeader, r.apiKey)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

// signIn syncs a user for the identity and returns its token.
func (h *harness) signIn(t *testing.T, externalID, email string) string {
	t.Helper()
	tok := h.token(t, externalID, email)
	rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body.String())
	}
	return tok
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	body := decode(t, rec)
	if body["type"] != "HTTPException" {
		t.Errorf("type = %v, want HTTPException", body["type"])
	}
	if message != "" && body["message"] != message {
		t.Errorf("message = %v, want %q", body["message"], message)
	}
}

func TestRouter_Routes(t *testing.T) {
	h := newHarness(t)
	r, err := h.app.Router()
	if err != nil {
		t.Fatalf("Router() error = %v", err)
	}

	want := map[string]string{
		"/auth/getCurrentUser":          http.MethodGet,
		"/auth/getDatabaseSyncStatus":   http.MethodGet,
		"/auth/regenerateApiKey":        http.MethodPost,
		"/category/createEventCategory": http.MethodPost,
		"/category/deleteCategory":      http.MethodPost,
		"/category/getEventCategories":  http.MethodGet,
		"/category/pollCategory":        http.MethodGet,
	}

	routes := r.Routes()
	if len(routes) != len(want) {
		t.Fatalf("len(Routes()) = %d, want %d", len(routes), len(want))
	}
	for _, rt := range routes {
		if want[rt.Path] != rt.Method {
			t.Errorf("route %s method = %s, want %s", rt.Path, rt.Method, want[rt.Path])
		}
	}
}

func TestGetDatabaseSyncStatus(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := decode(t, rec); body["isSynced"] != false || len(body) != 1 {
			t.Errorf("body = %v, want {isSynced:false}", body)
		}
	})

	t.Run("invalid token is ignored", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: "not-a-jwt"})
		if body := decode(t, rec); body["isSynced"] != false {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("no email", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: h.token(t, "ext-1", "")})
		body := decode(t, rec)
		if body["isSynced"] != false || body["reason"] != "No email on auth user" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("creates user with default quota", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: h.token(t, "ext-1", "a@example.com")})
		if body := decode(t, rec); body["isSynced"] != true {
			t.Fatalf("body = %v", body)
		}

		u, err := h.users.GetByExternalID(context.Background(), "ext-1")
		if err != nil {
			t.Fatalf("GetByExternalID() error = %v", err)
		}
		if u.Email != "a@example.com" || u.QuotaLimit != 100 {
			t.Errorf("user = %+v", u)
		}
	})

	t.Run("session cookie", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", cookie: h.token(t, "ext-1", "a@example.com")})
		if body := decode(t, rec); body["isSynced"] != true {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("repeated sync is stable", func(t *testing.T) {
		h := newHarness(t)
		tok := h.signIn(t, "ext-1", "a@example.com")
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: tok})
		if body := decode(t, rec); body["isSynced"] != true {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("sync failure is returned as 500", func(t *testing.T) {
		h := newHarness(t)
		h.signIn(t, "ext-a", "a@example.com")
		h.signIn(t, "ext-b", "b@example.com")

		// ext-b now claims ext-a's email.
		rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: h.token(t, "ext-b", "a@example.com")})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["isSynced"] != false || body["error"] != "SYNC_FAILED" {
			t.Errorf("body = %v", body)
		}
		if msg, _ := body["message"].(string); msg == "" {
			t.Error("message should describe the failure")
		}
	})
}

func TestGetCurrentUser(t *testing.T) {
	h := newHarness(t)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := h.do(t, request{path: "/auth/getCurrentUser"})
		wantError(t, rec, http.StatusUnauthorized, "Authentication required")
	})

	t.Run("identity without user", func(t *testing.T) {
		rec := h.do(t, request{path: "/auth/getCurrentUser", token: h.token(t, "ext-unsynced", "u@example.com")})
		wantError(t, rec, http.StatusUnauthorized, "Authentication required")
	})

	t.Run("synced user", func(t *testing.T) {
		tok := h.signIn(t, "ext-1", "a@example.com")
		rec := h.do(t, request{path: "/auth/getCurrentUser", token: tok})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		body := decode(t, rec)
		if body["email"] != "a@example.com" || body["quotaLimit"] != float64(100) || body["hasApiKey"] != false {
			t.Errorf("body = %v", body)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Error("rate limit headers missing")
		}
	})
}

func TestRegenerateApiKey(t *testing.T) {
	h := newHarness(t)
	tok := h.signIn(t, "ext-1", "a@example.com")

	t.Run("query method rejected", func(t *testing.T) {
		rec := h.do(t, request{path: "/auth/regenerateApiKey", token: tok})
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})

	rec := h.do(t, request{method: http.MethodPost, path: "/auth/regenerateApiKey", token: tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	first := decode(t, rec)
	key, _ := first["apiKey"].(string)
	if !strings.HasPrefix(key, "og_") {
		t.Fatalf("apiKey = %q", key)
	}
	if prefix, _ := first["prefix"].(string); !strings.HasPrefix(key, prefix) {
		t.Errorf("prefix %q is not a prefix of the key", prefix)
	}

	t.Run("key authenticates", func(t *testing.T) {
		rec := h.do(t, request{path: "/auth/getCurrentUser", apiKey: key})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if body := decode(t, rec); body["hasApiKey"] != true || body["email"] != "a@example.com" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("malformed key", func(t *testing.T) {
		rec := h.do(t, request{path: "/auth/getCurrentUser", apiKey: "og_nope"})
		wantError(t, rec, http.StatusUnauthorized, "Invalid API key")
	})

	t.Run("regenerate revokes previous key", func(t *testing.T) {
		rec := h.do(t, request{method: http.MethodPost, path: "/auth/regenerateApiKey", apiKey: key})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		second, _ := decode(t, rec)["apiKey"].(string)
		if second == key {
			t.Fatal("regenerated key should differ")
		}

		rec = h.do(t, request{path: "/auth/getCurrentUser", apiKey: key})
		wantError(t, rec, http.StatusUnauthorized, "Invalid API key")

		rec = h.do(t, request{path: "/auth/getCurrentUser", apiKey: second})
		if rec.Code != http.StatusOK {
			t.Errorf("new key status = %d", rec.Code)
		}
	})
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t)
	h.app.Limiter.Update(true, 1, 2)
	tok := h.signIn(t, "ext-1", "a@example.com")

	for i := 0; i < 2; i++ {
		rec := h.do(t, request{path: "/auth/getCurrentUser", token: tok})
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	rec := h.do(t, request{path: "/auth/getCurrentUser", token: tok})
	wantError(t, rec, http.StatusTooManyRequests, "Rate limit exceeded")
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}

	h.clock.Advance(time.Second)
	rec = h.do(t, request{path: "/auth/getCurrentUser", token: tok})
	if rec.Code != http.StatusOK {
		t.Errorf("after refill status = %d", rec.Code)
	}

	t.Run("public operations are not limited", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			rec := h.do(t, request{path: "/auth/getDatabaseSyncStatus", token: tok})
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h.app.Limiter.Update(false, 1, 1)
		for i := 0; i < 5; i++ {
			rec := h.do(t, request{path: "/auth/getCurrentUser", token: tok})
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d status = %d", i, rec.Code)
			}
		}
	})
}
