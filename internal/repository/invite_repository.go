package repository

import (
	"context"
	"database/sql"

	"github.com/tapin/server/internal/models"
)

// InviteRepository implements InviteRepo for PostgreSQL/SQLite
type InviteRepository struct {
	db *sql.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *sql.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) Add(ctx context.Context, invite *models.Invite) error {
	query := `INSERT INTO invites (id, code, group_id, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		invite.ID, invite.Code, invite.GroupID, invite.CreatedBy, invite.CreatedAt,
	)
	return err
}

func (r *InviteRepository) GetByCode(ctx context.Context, code string) (*models.Invite, error) {
	query := `SELECT id, code, group_id, created_by, created_at FROM invites WHERE code = $1`

	var invite models.Invite
	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&invite.ID, &invite.Code, &invite.GroupID, &invite.CreatedBy, &invite.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *InviteRepository) AddJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	query := `INSERT INTO join_requests (group_id, user_id, status, created_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, req.GroupID, req.UserID, req.Status, req.CreatedAt)
	return err
}

func (r *InviteRepository) GetJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	query := `SELECT group_id, user_id, status, created_at, responded_at
			  FROM join_requests WHERE group_id = $1 AND user_id = $2`

	var req models.JoinRequest
	var respondedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(
		&req.GroupID, &req.UserID, &req.Status, &req.CreatedAt, &respondedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		req.RespondedAt = &respondedAt.Time
	}
	return &req, nil
}

func (r *InviteRepository) UpdateJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	query := `UPDATE join_requests SET status = $3, responded_at = $4
			  WHERE group_id = $1 AND user_id = $2`

	_, err := r.db.ExecContext(ctx, query, req.GroupID, req.UserID, req.Status, req.RespondedAt)
	return err
}

func (r *InviteRepository) ListPending(ctx context.Context, groupID string) ([]*models.JoinRequest, error) {
	query := `SELECT group_id, user_id, status, created_at, responded_at
			  FROM join_requests WHERE group_id = $1 AND status = 'pending'
			  ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.JoinRequest
	for rows.Next() {
		var req models.JoinRequest
		var respondedAt sql.NullTime
		if err := rows.Scan(&req.GroupID, &req.UserID, &req.Status,
			&req.CreatedAt, &respondedAt); err != nil {
			return nil, err
		}
		if respondedAt.Valid {
			req.RespondedAt = &respondedAt.Time
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}
