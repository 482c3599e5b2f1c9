package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/eventhub-api/internal/domain"
	"github.com/vietanh2810/eventhub-api/internal/repository/memory"
)

func TestAuthenticate_ProvisionsAndRefreshes(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthService(store.Users())
	ctx := context.Background()

	principal, err := svc.Authenticate(ctx, domain.User{ID: 501, Email: "dana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: 501, Email: "dana@example.com", Roles: []string{domain.PlatformRoleUser}}, principal)

	stored, err := store.Users().FindByID(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", stored.Name)

	principal, err = svc.Authenticate(ctx, domain.User{
		ID:    501,
		Email: "dana@example.com",
		Name:  "Dana",
		Roles: []string{domain.PlatformRoleUser, domain.PlatformRoleAdmin},
	})
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())

	stored, err = store.Users().FindByID(ctx, 501)
	require.NoError(t, err)
	assert.Equal(t, "Dana", stored.Name)
}

func TestAuthenticate_Rejects(t *testing.T) {
	store := memory.NewStore()
	svc := NewAuthService(store.Users())
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, domain.User{ID: 1, Email: "taken@example.com"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, domain.User{ID: 2, Email: "TAKEN@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Authenticate(ctx, domain.User{ID: 3, Email: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
