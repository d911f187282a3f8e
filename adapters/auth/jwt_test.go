package auth_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/opgate/adapters/auth"
	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenService_EmptySecret(t *testing.T) {
	svc := auth.NewTokenService("", "", time.Hour)

	token, _, err := svc.GenerateToken("idp_1", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.Verify(token); err != nil {
		t.Errorf("Verify failed with generated secret: %v", err)
	}
}

func TestNewTokenService_DefaultExpiration(t *testing.T) {
	svc := auth.NewTokenService("secret", "", 0)

	_, expiresAt, err := svc.GenerateToken("idp_1", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	expectedExpiry := time.Now().Add(time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiration should be ~1h, got %v", expiresAt)
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "https://id.example.com", time.Hour)

	token, _, err := svc.GenerateToken("idp_123", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token has %d parts, want 3", len(parts))
	}

	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.ExternalID != "idp_123" {
		t.Errorf("ExternalID = %s, want idp_123", id.ExternalID)
	}
	if id.Email != "user@example.com" {
		t.Errorf("Email = %s, want user@example.com", id.Email)
	}
}

func TestTokenService_NoEmail(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "", time.Hour)

	token, _, _ := svc.GenerateToken("idp_1", "")
	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if id.Email != "" {
		t.Errorf("Email = %q, want empty", id.Email)
	}
}

func TestTokenService_GenerateWithoutSubject(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "", time.Hour)

	if _, _, err := svc.GenerateToken("", "a@example.com"); !errors.Is(err, auth.ErrMissingSubject) {
		t.Errorf("GenerateToken error = %v, want ErrMissingSubject", err)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "issuer-a", time.Hour)

	sign := func(method jwt.SigningMethod, key any, claims auth.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() auth.Claims {
		return auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "issuer-a",
			Subject:   "idp_1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	otherIssuer := valid()
	otherIssuer.Issuer = "issuer-b"
	noSubject := valid()
	noSubject.Subject = ""
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	other, _, _ := auth.NewTokenService("other-secret", "issuer-a", time.Hour).GenerateToken("idp_1", "")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", other},
		{"expired", sign(jwt.SigningMethodHS256, []byte("test-secret"), expired)},
		{"other issuer", sign(jwt.SigningMethodHS256, []byte("test-secret"), otherIssuer)},
		{"no subject", sign(jwt.SigningMethodHS256, []byte("test-secret"), noSubject)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte("test-secret"), noExpiry)},
		{"hs512", sign(jwt.SigningMethodHS512, []byte("test-secret"), valid())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.token); err == nil {
				t.Error("Verify should fail")
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	a, b := auth.GenerateSecret(), auth.GenerateSecret()
	if len(a) != 64 {
		t.Errorf("len = %d, want 64", len(a))
	}
	if a == b {
		t.Error("secrets should differ")
	}
}
