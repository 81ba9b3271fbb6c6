package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

func TestMembershipRepository_AddIsMemberRemove(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	roomRepo := NewRoomRepository(testPool)
	membershipRepo := NewMembershipRepository(testPool)

	user := createTestUser(t, ctx, userRepo)
	room := createTestRoom(t, ctx, roomRepo, domain.VisibilityPublic)

	isMember, err := membershipRepo.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	membership, err := membershipRepo.Add(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, membership.RoomID)
	assert.Equal(t, user.ID, membership.UserID)
	assert.False(t, membership.JoinedAt.IsZero())

	isMember, err = membershipRepo.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	removed, err := membershipRepo.Remove(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	// A second remove finds nothing.
	removed, err = membershipRepo.Remove(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMembershipRepository_DuplicateAdd(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	roomRepo := NewRoomRepository(testPool)
	membershipRepo := NewMembershipRepository(testPool)

	user := createTestUser(t, ctx, userRepo)
	room := createTestRoom(t, ctx, roomRepo, domain.VisibilityPrivate)

	_, err := membershipRepo.Add(ctx, room.ID, user.ID)
	require.NoError(t, err)

	_, err = membershipRepo.Add(ctx, room.ID, user.ID)
	require.ErrorIs(t, err, apperrors.ErrAlreadyMember)
}

func TestMembershipRepository_AddToMissingRoom(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	membershipRepo := NewMembershipRepository(testPool)

	user := createTestUser(t, ctx, userRepo)

	_, err := membershipRepo.Add(ctx, uuid.New(), user.ID)
	require.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestMembershipRepository_ListMembers(t *testing.T) {
	ctx := context.Background()
	userRepo := NewUserRepository(testPool)
	roomRepo := NewRoomRepository(testPool)
	membershipRepo := NewMembershipRepository(testPool)

	room := createTestRoom(t, ctx, roomRepo, domain.VisibilityPublic)
	first := createTestUser(t, ctx, userRepo)
	second := createTestUser(t, ctx, userRepo)

	_, err := membershipRepo.Add(ctx, room.ID, first.ID)
	require.NoError(t, err)
	_, err = membershipRepo.Add(ctx, room.ID, second.ID)
	require.NoError(t, err)

	members, err := membershipRepo.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// Ordered by join time.
	assert.Equal(t, first.ID, members[0].ID)
	assert.Equal(t, second.ID, members[1].ID)
	assert.Equal(t, first.Username, members[0].Username)
}
