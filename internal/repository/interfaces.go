package repository

import (
	"context"

	"github.com/tapin/server/internal/models"
)

// StateStore is the durable key-value blob store the lifecycle engine
// snapshots into. Get reports whether the key existed so an absent
// blob is distinguishable from an empty one.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// UserRepo defines user persistence operations.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.User, error)
	Add(ctx context.Context, user *models.User) error
	UpdateAPIKeyHash(ctx context.Context, id, apiKeyHash string) error
}

// GroupRepo defines group and membership persistence operations.
type GroupRepo interface {
	GetByID(ctx context.Context, id string) (*models.Group, error)
	GetForUser(ctx context.Context, userID string) ([]*models.Group, error)
	Add(ctx context.Context, group *models.Group) error
	AddMember(ctx context.Context, groupID string, member models.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID string) (bool, error)
}

// InviteRepo defines invite code and join request persistence.
type InviteRepo interface {
	Add(ctx context.Context, invite *models.Invite) error
	GetByCode(ctx context.Context, code string) (*models.Invite, error)
	AddJoinRequest(ctx context.Context, req *models.JoinRequest) error
	GetJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error)
	UpdateJoinRequest(ctx context.Context, req *models.JoinRequest) error
	ListPending(ctx context.Context, groupID string) ([]*models.JoinRequest, error)
}

// DeviceRepo defines push device persistence operations.
type DeviceRepo interface {
	Upsert(ctx context.Context, device *models.Device) error
	GetTokensForUsers(ctx context.Context, userIDs []string) ([]string, error)
}
