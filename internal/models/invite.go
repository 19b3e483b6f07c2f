package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Invite is a shareable join code for a group. Codes are unguessable
// random strings; there is no cryptographic handshake beyond that.
type Invite struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	GroupID   string    `json:"groupId"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewInvite creates an invite code for a group.
func NewInvite(groupID, createdBy string) (*Invite, error) {
	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}

	return &Invite{
		ID:        uuid.New().String(),
		Code:      code,
		GroupID:   groupID,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func generateInviteCode() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// JoinStatus tracks a join request's lifecycle.
type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinApproved JoinStatus = "approved"
	JoinDeclined JoinStatus = "declined"
)

// JoinRequest is a user's pending request to join a group via an
// invite code. The group owner approves or declines it.
type JoinRequest struct {
	GroupID     string     `json:"groupId"`
	UserID      string     `json:"userId"`
	Status      JoinStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

// NewJoinRequest creates a pending join request.
func NewJoinRequest(groupID, userID string) *JoinRequest {
	return &JoinRequest{
		GroupID:   groupID,
		UserID:    userID,
		Status:    JoinPending,
		CreatedAt: time.Now().UTC(),
	}
}

// Respond resolves the request. Only pending requests can be resolved.
func (j *JoinRequest) Respond(status JoinStatus) error {
	if j.Status != JoinPending {
		return ErrJoinAlreadyResolved
	}
	now := time.Now().UTC()
	j.Status = status
	j.RespondedAt = &now
	return nil
}

// Invite errors
type InviteError struct {
	Message string
}

func (e InviteError) Error() string {
	return e.Message
}

var (
	ErrInviteNotFound      = InviteError{"invite code not found"}
	ErrJoinRequestNotFound = InviteError{"join request not found"}
	ErrJoinAlreadyPending  = InviteError{"join request already pending"}
	ErrJoinAlreadyResolved = InviteError{"join request already resolved"}
)
