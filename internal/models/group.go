package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemberRole is a member's role within a group.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// GroupMember is one user's membership in a group.
type GroupMember struct {
	UserID      string     `json:"userId"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	Role        MemberRole `json:"role"`
	JoinedAt    time.Time  `json:"joinedAt"`
}

// Group is a posting group. Exactly one member holds the owner role;
// the owner cannot be removed without transferring ownership first.
type Group struct {
	GroupID   string        `json:"groupId"`
	Name      string        `json:"name"`
	Emoji     string        `json:"emoji,omitempty"`
	CreatedBy string        `json:"createdBy"`
	CreatedAt time.Time     `json:"createdAt"`
	Members   []GroupMember `json:"members,omitempty"`
}

// NewGroup creates a group owned by creatorID.
func NewGroup(name, emoji, creatorID string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}
	if strings.TrimSpace(creatorID) == "" {
		return nil, ErrEmptyUserID
	}

	return &Group{
		GroupID:   uuid.New().String(),
		Name:      name,
		Emoji:     strings.TrimSpace(emoji),
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Member returns the membership record for userID, or nil.
func (g *Group) Member(userID string) *GroupMember {
	for i := range g.Members {
		if g.Members[i].UserID == userID {
			return &g.Members[i]
		}
	}
	return nil
}

// IsOwner reports whether userID holds the owner role.
func (g *Group) IsOwner(userID string) bool {
	m := g.Member(userID)
	return m != nil && m.Role == RoleOwner
}

// Group errors
type GroupError struct {
	Message string
}

func (e GroupError) Error() string {
	return e.Message
}

var (
	ErrEmptyGroupName    = GroupError{"group name cannot be empty"}
	ErrGroupNotFound     = GroupError{"group not found"}
	ErrNotAMember        = GroupError{"user is not a member of this group"}
	ErrNotGroupOwner     = GroupError{"only the group owner may do this"}
	ErrMemberExists      = GroupError{"user is already a member"}
	ErrOwnerNotRemovable = GroupError{"group owner cannot be removed"}
)
