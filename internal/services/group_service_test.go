package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/engine"
	"github.com/tapin/server/internal/models"
)

type fakeStateStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (f *fakeStateStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[key]
	return data, ok, nil
}

func (f *fakeStateStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blobs == nil {
		f.blobs = make(map[string][]byte)
	}
	f.blobs[key] = value
	return nil
}

type fakeUserRepo struct {
	users map[string]*models.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByAPIKeyHash(ctx context.Context, keyHash string) (*models.User, error) {
	for _, u := range f.users {
		if u.APIKeyHash == keyHash && u.IsActive {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Add(ctx context.Context, user *models.User) error {
	if f.users == nil {
		f.users = make(map[string]*models.User)
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) UpdateAPIKeyHash(ctx context.Context, id, apiKeyHash string) error {
	if u, ok := f.users[id]; ok {
		u.APIKeyHash = apiKeyHash
	}
	return nil
}

type fakeGroupRepo struct {
	groups map[string]*models.Group
}

func (f *fakeGroupRepo) GetByID(ctx context.Context, id string) (*models.Group, error) {
	return f.groups[id], nil
}

func (f *fakeGroupRepo) GetForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	var out []*models.Group
	for _, g := range f.groups {
		if g.Member(userID) != nil {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) Add(ctx context.Context, group *models.Group) error {
	if f.groups == nil {
		f.groups = make(map[string]*models.Group)
	}
	f.groups[group.GroupID] = group
	return nil
}

func (f *fakeGroupRepo) AddMember(ctx context.Context, groupID string, member models.GroupMember) error {
	g := f.groups[groupID]
	g.Members = append(g.Members, member)
	return nil
}

func (f *fakeGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	g := f.groups[groupID]
	for i, m := range g.Members {
		if m.UserID == userID {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeInviteRepo struct {
	invites  map[string]*models.Invite
	requests map[string]*models.JoinRequest
}

func (f *fakeInviteRepo) Add(ctx context.Context, invite *models.Invite) error {
	if f.invites == nil {
		f.invites = make(map[string]*models.Invite)
	}
	f.invites[invite.Code] = invite
	return nil
}

func (f *fakeInviteRepo) GetByCode(ctx context.Context, code string) (*models.Invite, error) {
	return f.invites[code], nil
}

func (f *fakeInviteRepo) AddJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	if f.requests == nil {
		f.requests = make(map[string]*models.JoinRequest)
	}
	f.requests[req.GroupID+"/"+req.UserID] = req
	return nil
}

func (f *fakeInviteRepo) GetJoinRequest(ctx context.Context, groupID, userID string) (*models.JoinRequest, error) {
	return f.requests[groupID+"/"+userID], nil
}

func (f *fakeInviteRepo) UpdateJoinRequest(ctx context.Context, req *models.JoinRequest) error {
	f.requests[req.GroupID+"/"+req.UserID] = req
	return nil
}

func (f *fakeInviteRepo) ListPending(ctx context.Context, groupID string) ([]*models.JoinRequest, error) {
	var out []*models.JoinRequest
	for _, r := range f.requests {
		if r.GroupID == groupID && r.Status == models.JoinPending {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestGroupService(t *testing.T) (*GroupService, *fakeUserRepo, *engine.Engine) {
	t.Helper()
	eng := engine.New(&fakeStateStore{}, time.Minute)
	users := &fakeUserRepo{}
	svc := NewGroupService(&fakeGroupRepo{}, &fakeInviteRepo{}, users, eng)
	return svc, users, eng
}

func mustUser(t *testing.T, repo *fakeUserRepo, email string) *models.User {
	t.Helper()
	user, err := models.NewUser(email, "Test User", "password123")
	require.NoError(t, err)
	require.NoError(t, repo.Add(context.Background(), user))
	return user
}

func TestGroupCreateSeedsRound(t *testing.T) {
	svc, users, eng := newTestGroupService(t)
	ctx := context.Background()
	owner := mustUser(t, users, "owner@example.com")

	group, err := svc.Create(ctx, owner, "The Crew", "🔥")
	require.NoError(t, err)
	require.Len(t, group.Members, 1)
	assert.Equal(t, models.RoleOwner, group.Members[0].Role)

	round, ok := eng.CurrentRound(group.GroupID)
	require.True(t, ok)
	assert.Equal(t, models.RoundWaiting, round.Status)
	assert.NotEmpty(t, round.Prompt)
}

func TestGroupMembership(t *testing.T) {
	svc, users, _ := newTestGroupService(t)
	ctx := context.Background()
	owner := mustUser(t, users, "owner@example.com")
	friend := mustUser(t, users, "friend@example.com")
	stranger := mustUser(t, users, "stranger@example.com")

	group, err := svc.Create(ctx, owner, "The Crew", "")
	require.NoError(t, err)

	// Only the owner can add members
	_, err = svc.AddMember(ctx, friend.ID, group.GroupID, stranger.ID)
	assert.ErrorIs(t, err, models.ErrNotGroupOwner)

	got, err := svc.AddMember(ctx, owner.ID, group.GroupID, friend.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 2)

	_, err = svc.AddMember(ctx, owner.ID, group.GroupID, friend.ID)
	assert.ErrorIs(t, err, models.ErrMemberExists)

	// Non-members cannot see the group
	_, err = svc.Get(ctx, stranger.ID, group.GroupID)
	assert.ErrorIs(t, err, models.ErrNotAMember)

	// A member may leave, a stranger may not remove anyone
	err = svc.RemoveMember(ctx, stranger.ID, group.GroupID, friend.ID)
	assert.ErrorIs(t, err, models.ErrNotGroupOwner)

	err = svc.RemoveMember(ctx, friend.ID, group.GroupID, friend.ID)
	require.NoError(t, err)

	// The owner can never be removed
	err = svc.RemoveMember(ctx, owner.ID, group.GroupID, owner.ID)
	assert.ErrorIs(t, err, models.ErrOwnerNotRemovable)
}

func TestJoinRequestFlow(t *testing.T) {
	svc, users, _ := newTestGroupService(t)
	ctx := context.Background()
	owner := mustUser(t, users, "owner@example.com")
	joiner := mustUser(t, users, "joiner@example.com")

	group, err := svc.Create(ctx, owner, "The Crew", "")
	require.NoError(t, err)

	invite, err := svc.CreateInvite(ctx, owner.ID, group.GroupID)
	require.NoError(t, err)
	require.NotEmpty(t, invite.Code)

	_, err = svc.RequestJoin(ctx, joiner.ID, "nope00")
	assert.ErrorIs(t, err, models.ErrInviteNotFound)

	req, err := svc.RequestJoin(ctx, joiner.ID, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, models.JoinPending, req.Status)

	// A second request while one is pending is rejected
	_, err = svc.RequestJoin(ctx, joiner.ID, invite.Code)
	assert.ErrorIs(t, err, models.ErrJoinAlreadyPending)

	// Only the owner sees and resolves requests
	_, err = svc.PendingJoins(ctx, joiner.ID, group.GroupID)
	assert.ErrorIs(t, err, models.ErrNotGroupOwner)

	pending, err := svc.PendingJoins(ctx, owner.ID, group.GroupID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	resolved, err := svc.RespondToJoin(ctx, owner.ID, group.GroupID, joiner.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.JoinApproved, resolved.Status)

	got, err := svc.Get(ctx, joiner.ID, group.GroupID)
	require.NoError(t, err)
	assert.NotNil(t, got.Member(joiner.ID))

	// Resolving twice fails
	_, err = svc.RespondToJoin(ctx, owner.ID, group.GroupID, joiner.ID, false)
	assert.ErrorIs(t, err, models.ErrJoinAlreadyResolved)

	// Members with an approved request cannot request again
	_, err = svc.RequestJoin(ctx, joiner.ID, invite.Code)
	assert.ErrorIs(t, err, models.ErrMemberExists)
}
