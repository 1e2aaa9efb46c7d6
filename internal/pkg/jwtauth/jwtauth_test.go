package jwtauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_RoundTrip(t *testing.T) {
	auth := New("secret", "notification-manager")

	token, err := auth.Issue("svc-a", time.Minute)
	require.NoError(t, err)

	subject, err := auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "svc-a", subject)
}

func TestAuthenticator_Rejects(t *testing.T) {
	auth := New("secret", "notification-manager")

	expired, err := auth.Issue("svc-a", -time.Minute)
	require.NoError(t, err)

	otherKey, err := New("other", "notification-manager").Issue("svc-a", time.Minute)
	require.NoError(t, err)

	otherIssuer, err := New("secret", "someone-else").Issue("svc-a", time.Minute)
	require.NoError(t, err)

	noSubject, err := auth.Issue("", time.Minute)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "svc-a",
		Issuer:  "notification-manager",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "svc-a",
		Issuer:    "notification-manager",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
		"no expiry":    noExpiry,
		"wrong alg":    hs512,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateToken(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAuthenticator_NoIssuerCheck(t *testing.T) {
	token, err := New("secret", "anyone").Issue("svc-a", time.Minute)
	require.NoError(t, err)

	subject, err := New("secret", "").ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "svc-a", subject)
}
