package repository

import (
	"context"
	"database/sql"

	"github.com/tapin/server/internal/observability"
)

// StateRepository implements StateStore over the app_state table. Each
// key holds one opaque JSON blob owned by the lifecycle engine.
type StateRepository struct {
	db *sql.DB
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db}
}

func (r *StateRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, span := observability.StartDBSpan(ctx, "SELECT", "app_state")
	defer span.End()

	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (r *StateRepository) Set(ctx context.Context, key string, value []byte) error {
	ctx, span := observability.StartDBSpan(ctx, "UPSERT", "app_state")
	defer span.End()

	query := `INSERT INTO app_state (key, value, updated_at)
			  VALUES ($1, $2, CURRENT_TIMESTAMP)
			  ON CONFLICT(key) DO UPDATE SET
				value = $2,
				updated_at = CURRENT_TIMESTAMP`

	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}
