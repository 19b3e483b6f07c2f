package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tapin/server/internal/models"
)

// DeviceRepository implements DeviceRepo for PostgreSQL/SQLite
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new DeviceRepository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers a device, refreshing last_seen_at when the same
// user re-registers the same token.
func (r *DeviceRepository) Upsert(ctx context.Context, device *models.Device) error {
	query := `INSERT INTO devices (id, user_id, platform, fcm_token, registered_at, last_seen_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT(user_id, fcm_token) DO UPDATE SET
				platform = $3,
				last_seen_at = $6`

	_, err := r.db.ExecContext(ctx, query,
		device.ID, device.UserID, device.Platform, device.FCMToken,
		device.RegisteredAt, device.LastSeenAt,
	)
	return err
}

// GetTokensForUsers returns the distinct FCM tokens registered by any
// of the given users.
func (r *DeviceRepository) GetTokensForUsers(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(userIDs))
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT DISTINCT fcm_token FROM devices WHERE user_id IN (%s)`,
		strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
