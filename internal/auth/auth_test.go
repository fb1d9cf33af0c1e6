package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	token, err := iss.Issue("u1", "worker1")
	require.NoError(t, err)

	p, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Username: "worker1"}, p)
}

func TestIssuer_Rejects(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Minute)
	require.NoError(t, err)
	other, err := NewIssuer("other", time.Minute)
	require.NoError(t, err)

	foreign, err := other.Issue("u1", "worker1")
	require.NoError(t, err)

	expiredIss, err := NewIssuer("s3cret", time.Minute)
	require.NoError(t, err)
	expiredIss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIss.Issue("u1", "worker1")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "x"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":        "not.a.token",
		"wrong secret":   foreign,
		"expired":        expired,
		"no subject":     noSubject,
		"none algorithm": none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	_, err := NewIssuer("  ", time.Hour)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))

	_, err = HashPassword("")
	assert.Error(t, err)
}
