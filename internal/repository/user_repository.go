package repository

import (
	"context"
	"database/sql"

	"github.com/tapin/server/internal/models"
)

// UserRepository implements UserRepo for PostgreSQL/SQLite
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, display_name, api_key_hash, password_hash, created_at, is_active
			  FROM users WHERE id = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.APIKeyHash,
		&user.PasswordHash, &user.CreatedAt, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, display_name, api_key_hash, password_hash, created_at, is_active
			  FROM users WHERE email = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.APIKeyHash,
		&user.PasswordHash, &user.CreatedAt, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*models.User, error) {
	query := `SELECT id, email, display_name, api_key_hash, password_hash, created_at, is_active
			  FROM users WHERE api_key_hash = $1 AND is_active = true`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, apiKeyHash).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.APIKeyHash,
		&user.PasswordHash, &user.CreatedAt, &user.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Add(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, email, display_name, api_key_hash, password_hash, created_at, is_active)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, user.APIKeyHash,
		user.PasswordHash, user.CreatedAt, user.IsActive,
	)
	return err
}

// UpdateAPIKeyHash rotates a user's API key hash (used on login)
func (r *UserRepository) UpdateAPIKeyHash(ctx context.Context, id, apiKeyHash string) error {
	query := `UPDATE users SET api_key_hash = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, apiKeyHash)
	return err
}
