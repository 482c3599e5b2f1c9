package jwthelper

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
)

var testKey = []byte("test-signing-key")

func TestGenerateAndParseToken(t *testing.T) {
	user := domain.User{ID: 42, Email: "alice@example.com", Name: "Alice", Roles: []string{domain.PlatformRoleAdmin}}

	token, err := GenerateToken(testKey, user, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(testKey, token)
	require.NoError(t, err)

	got, err := claims.User()
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

func TestParseToken_Rejects(t *testing.T) {
	user := domain.User{ID: 7, Email: "bob@example.com"}

	expired, err := GenerateToken(testKey, user, -time.Minute)
	require.NoError(t, err)

	otherKey, err := GenerateToken([]byte("another-key"), user, time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "x@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testKey)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "wrong key", token: otherKey},
		{name: "missing subject", token: noSubject},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(testKey, tc.token)
			assert.Error(t, err)
		})
	}
}
