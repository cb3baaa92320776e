// Package identity verifies bearer credentials and turns them into an
// identity claim. The directory record behind the claim lives in the store;
// this package only vouches for who is calling.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential covers every verification failure. Callers map it to
// an unauthenticated response without leaking the cause.
var ErrInvalidCredential = errors.New("invalid credential")

// Identity is the verified claim carried by a bearer token.
type Identity struct {
	Subject string
	Name    string
	Email   string
}

type Verifier interface {
	Verify(token string) (Identity, error)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// JWT verifies HS256 tokens signed with a shared secret.
type JWT struct {
	Secret string
	Now    func() time.Time
}

func (j JWT) Verify(token string) (Identity, error) {
	if strings.TrimSpace(j.Secret) == "" {
		return Identity{}, errors.New("jwt secret not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(j.Now))
	}
	parser := jwt.NewParser(opts...)
	claims := &tokenClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(j.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidCredential
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidCredential
	}
	return Identity{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}, nil
}

// Mint signs a token for the given identity. Used by the token CLI command
// and by tests.
func (j JWT) Mint(id Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(j.Secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	issued := now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
		},
		Name:  id.Name,
		Email: id.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.Secret))
}
