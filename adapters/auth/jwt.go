// Package auth verifies identity tokens issued for the dashboard's users.
// Tokens are stateless HS256 JWTs; no shared state between instances.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/opgate/ports"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingSubject is returned for tokens without a subject.
var ErrMissingSubject = errors.New("token has no subject")

// Claims represents the identity token claims. Subject holds the identity
// provider's user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService provides stateless JWT token operations.
// Thread-safe and suitable for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewTokenService creates a new JWT token service.
// If secret is empty, a random 32-byte secret is generated.
// When issuer is set, tokens from any other issuer are rejected.
func NewTokenService(secret, issuer string, expiration time.Duration) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration == 0 {
		expiration = time.Hour
	}

	return &TokenService{
		secret:     secretBytes,
		issuer:     issuer,
		expiration: expiration,
	}
}

// GenerateToken creates a new token for the given identity.
func (s *TokenService) GenerateToken(externalID, email string) (string, time.Time, error) {
	if externalID == "" {
		return "", time.Time{}, ErrMissingSubject
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	return claims, nil
}

// Verify implements ports.IdentityVerifier.
func (s *TokenService) Verify(tokenString string) (ports.Identity, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return ports.Identity{}, fmt.Errorf("verify identity token: %w", err)
	}
	return ports.Identity{ExternalID: claims.Subject, Email: claims.Email}, nil
}

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Ensure interface compliance.
var _ ports.IdentityVerifier = (*TokenService)(nil)
