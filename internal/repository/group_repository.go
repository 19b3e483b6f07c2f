package repository

import (
	"context"
	"database/sql"

	"github.com/tapin/server/internal/models"
)

// GroupRepository implements GroupRepo for PostgreSQL/SQLite
type GroupRepository struct {
	db *sql.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT id, name, emoji, created_by, created_at FROM groups WHERE id = $1`

	var group models.Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.GroupID, &group.Name, &group.Emoji, &group.CreatedBy, &group.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	members, err := r.getMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return &group, nil
}

func (r *GroupRepository) GetForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	query := `SELECT g.id, g.name, g.emoji, g.created_by, g.created_at
			  FROM groups g
			  JOIN group_members gm ON gm.group_id = g.id
			  WHERE gm.user_id = $1
			  ORDER BY g.created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var group models.Group
		if err := rows.Scan(&group.GroupID, &group.Name, &group.Emoji,
			&group.CreatedBy, &group.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, &group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, group := range groups {
		members, err := r.getMembers(ctx, group.GroupID)
		if err != nil {
			return nil, err
		}
		group.Members = members
	}
	return groups, nil
}

func (r *GroupRepository) getMembers(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	query := `SELECT gm.user_id, u.email, u.display_name, gm.role, gm.joined_at
			  FROM group_members gm
			  JOIN users u ON u.id = gm.user_id
			  WHERE gm.group_id = $1
			  ORDER BY gm.joined_at`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.UserID, &m.Email, &m.DisplayName, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *GroupRepository) Add(ctx context.Context, group *models.Group) error {
	query := `INSERT INTO groups (id, name, emoji, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		group.GroupID, group.Name, group.Emoji, group.CreatedBy, group.CreatedAt,
	)
	return err
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID string, member models.GroupMember) error {
	query := `INSERT INTO group_members (group_id, user_id, role, joined_at)
			  VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, groupID, member.UserID, member.Role, member.JoinedAt)
	return err
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}
