package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tapin/server/internal/engine"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/repository"
)

// GroupService manages groups, memberships, invite codes, and join
// approvals. Creating a group also seeds its first Blitz round.
type GroupService struct {
	groupRepo  repository.GroupRepo
	inviteRepo repository.InviteRepo
	userRepo   repository.UserRepo
	engine     *engine.Engine
}

// NewGroupService creates a new GroupService
func NewGroupService(groupRepo repository.GroupRepo, inviteRepo repository.InviteRepo, userRepo repository.UserRepo, eng *engine.Engine) *GroupService {
	return &GroupService{
		groupRepo:  groupRepo,
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		engine:     eng,
	}
}

// Create makes a new group owned by the creator and seeds a waiting
// round for it.
func (s *GroupService) Create(ctx context.Context, creator *models.User, name, emoji string) (*models.Group, error) {
	group, err := models.NewGroup(name, emoji, creator.ID)
	if err != nil {
		return nil, err
	}

	if err := s.groupRepo.Add(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	owner := models.GroupMember{
		UserID:      creator.ID,
		Email:       creator.Email,
		DisplayName: creator.DisplayName,
		Role:        models.RoleOwner,
		JoinedAt:    group.CreatedAt,
	}
	if err := s.groupRepo.AddMember(ctx, group.GroupID, owner); err != nil {
		return nil, fmt.Errorf("failed to add owner: %w", err)
	}
	group.Members = []models.GroupMember{owner}

	if _, err := s.engine.EnsureRound(ctx, group.GroupID); err != nil {
		observability.Warnf("Failed to seed round for group %s: %v", group.GroupID, err)
	}

	observability.Infof("Group created: %s by %s", group.GroupID, creator.ID)
	return group, nil
}

// Get returns a group the user is a member of.
func (s *GroupService) Get(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if group.Member(userID) == nil {
		return nil, models.ErrNotAMember
	}
	return group, nil
}

// ListForUser returns every group the user belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	groups, err := s.groupRepo.GetForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// AddMember adds a user to the group. Only the owner may do this.
func (s *GroupService) AddMember(ctx context.Context, actorID, groupID, userID string) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if !group.IsOwner(actorID) {
		return nil, models.ErrNotGroupOwner
	}
	if group.Member(userID) != nil {
		return nil, models.ErrMemberExists
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	member := models.GroupMember{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        models.RoleMember,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.groupRepo.AddMember(ctx, groupID, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	group.Members = append(group.Members, member)
	return group, nil
}

// RemoveMember removes a member. The owner may remove anyone but
// themselves; a member may remove only themselves (leave).
func (s *GroupService) RemoveMember(ctx context.Context, actorID, groupID, userID string) error {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return models.ErrGroupNotFound
	}

	target := group.Member(userID)
	if target == nil {
		return models.ErrNotAMember
	}
	if target.Role == models.RoleOwner {
		return models.ErrOwnerNotRemovable
	}
	if actorID != userID && !group.IsOwner(actorID) {
		return models.ErrNotGroupOwner
	}

	removed, err := s.groupRepo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if !removed {
		return models.ErrNotAMember
	}
	return nil
}

// CreateInvite generates a shareable join code for a group.
func (s *GroupService) CreateInvite(ctx context.Context, actorID, groupID string) (*models.Invite, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if group.Member(actorID) == nil {
		return nil, models.ErrNotAMember
	}

	invite, err := models.NewInvite(groupID, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	if err := s.inviteRepo.Add(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to save invite: %w", err)
	}
	return invite, nil
}

// RequestJoin records a pending join request against an invite code.
// Joining is not immediate; the group owner approves or declines.
func (s *GroupService) RequestJoin(ctx context.Context, userID, code string) (*models.JoinRequest, error) {
	invite, err := s.inviteRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup invite: %w", err)
	}
	if invite == nil {
		return nil, models.ErrInviteNotFound
	}

	group, err := s.groupRepo.GetByID(ctx, invite.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if group.Member(userID) != nil {
		return nil, models.ErrMemberExists
	}

	if existing, err := s.inviteRepo.GetJoinRequest(ctx, invite.GroupID, userID); err != nil {
		return nil, fmt.Errorf("failed to check join request: %w", err)
	} else if existing != nil && existing.Status == models.JoinPending {
		return nil, models.ErrJoinAlreadyPending
	}

	req := models.NewJoinRequest(invite.GroupID, userID)
	if err := s.inviteRepo.AddJoinRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to save join request: %w", err)
	}
	return req, nil
}

// PendingJoins lists the group's pending join requests for the owner.
func (s *GroupService) PendingJoins(ctx context.Context, actorID, groupID string) ([]*models.JoinRequest, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if !group.IsOwner(actorID) {
		return nil, models.ErrNotGroupOwner
	}

	return s.inviteRepo.ListPending(ctx, groupID)
}

// RespondToJoin approves or declines a pending join request. Approval
// adds the requester as a member.
func (s *GroupService) RespondToJoin(ctx context.Context, actorID, groupID, userID string, approve bool) (*models.JoinRequest, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}
	if !group.IsOwner(actorID) {
		return nil, models.ErrNotGroupOwner
	}

	req, err := s.inviteRepo.GetJoinRequest(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get join request: %w", err)
	}
	if req == nil {
		return nil, models.ErrJoinRequestNotFound
	}

	status := models.JoinDeclined
	if approve {
		status = models.JoinApproved
	}
	if err := req.Respond(status); err != nil {
		return nil, err
	}
	if err := s.inviteRepo.UpdateJoinRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update join request: %w", err)
	}

	if approve {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return nil, models.ErrUserNotFound
		}
		member := models.GroupMember{
			UserID:      user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        models.RoleMember,
			JoinedAt:    time.Now().UTC(),
		}
		if err := s.groupRepo.AddMember(ctx, groupID, member); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}

	return req, nil
}

// MemberIDs returns the user ids of every member in the group.
func (s *GroupService) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if group == nil {
		return nil, models.ErrGroupNotFound
	}

	ids := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}
