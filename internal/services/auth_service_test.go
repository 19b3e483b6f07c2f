package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/models"
)

func TestRegister(t *testing.T) {
	svc := NewAuthService(&fakeUserRepo{}, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.APIKey)
	assert.Equal(t, models.HashAPIKey(user.APIKey), user.APIKeyHash)
	assert.True(t, user.IsActive)

	// Duplicate email
	_, err = svc.Register(ctx, "alice@example.com", "Alice Again", "password456")
	assert.ErrorIs(t, err, models.ErrEmailExists)

	// Short password
	_, err = svc.Register(ctx, "bob@example.com", "Bob", "short")
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	repo := &fakeUserRepo{}
	svc := NewAuthService(repo, nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "Alice", "password123")
	require.NoError(t, err)
	originalHash := registered.APIKeyHash

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, models.ErrUserNotFound)

	_, err = svc.Login(ctx, "alice@example.com", "wrongpassword")
	assert.ErrorIs(t, err, models.ErrInvalidPassword)

	user, err := svc.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, user.APIKey)

	// Login rotates the API key
	assert.NotEqual(t, originalHash, user.APIKeyHash)
	stored, err := repo.GetByAPIKeyHash(ctx, models.HashAPIKey(user.APIKey))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, user.ID, stored.ID)

	// Disabled accounts cannot log in
	stored.IsActive = false
	_, err = svc.Login(ctx, "alice@example.com", "password123")
	assert.Error(t, err)
}
