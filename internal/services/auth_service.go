package services

import (
	"context"
	"fmt"

	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/repository"
)

// AuthService handles account registration and password login.
type AuthService struct {
	userRepo repository.UserRepo
	metrics  *observability.BusinessMetrics
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepo, metrics *observability.BusinessMetrics) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		metrics:  metrics,
	}
}

// Register creates an account and returns the user with the freshly
// generated API key set. The key is only ever visible in this response.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	if existing != nil {
		return nil, models.ErrEmailExists
	}

	user, err := models.NewUser(email, displayName, password)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Add(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	observability.Infof("User registered: %s", user.ID)
	return user, nil
}

// Login authenticates a user with email and password and rotates their
// API key. Returns the user with the new key set.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user: %w", err)
	}
	if user == nil {
		s.recordAttempt(ctx, false)
		return nil, models.ErrUserNotFound
	}

	if !user.IsActive {
		s.recordAttempt(ctx, false)
		return nil, fmt.Errorf("user account is disabled")
	}

	if !user.VerifyPassword(password) {
		s.recordAttempt(ctx, false)
		return nil, models.ErrInvalidPassword
	}

	// Rotate the API key on every login
	newKey, err := models.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	if err := s.userRepo.UpdateAPIKeyHash(ctx, user.ID, models.HashAPIKey(newKey)); err != nil {
		return nil, fmt.Errorf("failed to update API key: %w", err)
	}

	user.APIKey = newKey
	user.APIKeyHash = models.HashAPIKey(newKey)

	s.recordAttempt(ctx, true)
	return user, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, success bool) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(ctx, "password", success)
	}
}
