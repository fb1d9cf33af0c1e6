// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token body: the subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	UserID   string
	Username string
}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A zero ttl yields tokens without expiry.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret not configured")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(userID, username string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Username: username,
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses token and returns its principal.
func (i *Issuer) Verify(token string) (Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.Subject, Username: claims.Username}, nil
}
