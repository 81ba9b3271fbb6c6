package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

func newRoomFixture(t *testing.T) (*RoomService, *fakeRoomRepo, *fakeMembershipRepo) {
	t.Helper()
	users := newFakeUserRepo()
	rooms := newFakeRoomRepo()
	memberships := newFakeMembershipRepo(users)
	return NewRoomService(rooms, memberships, passthroughTxRunner{}), rooms, memberships
}

func TestRoomService_CreateRoom_EnrollsCreator(t *testing.T) {
	svc, _, memberships := newRoomFixture(t)
	creatorID := uuid.New()

	room, err := svc.CreateRoom(context.Background(), ports.CreateRoomParams{
		Name:      "general",
		CreatorID: creatorID,
	})
	require.NoError(t, err)
	require.Equal(t, domain.VisibilityPublic, room.Visibility, "visibility defaults to public")

	isMember, err := memberships.IsMember(context.Background(), room.ID, creatorID)
	require.NoError(t, err)
	require.True(t, isMember)
}

func TestRoomService_CreateRoom_ValidatesInput(t *testing.T) {
	svc, _, _ := newRoomFixture(t)

	_, err := svc.CreateRoom(context.Background(), ports.CreateRoomParams{
		Name:      "",
		CreatorID: uuid.New(),
	})
	require.ErrorIs(t, err, apperrors.ErrRoomNameRequired)

	_, err = svc.CreateRoom(context.Background(), ports.CreateRoomParams{
		Name:       "general",
		Visibility: "hidden",
		CreatorID:  uuid.New(),
	})
	require.ErrorIs(t, err, apperrors.ErrInvalidVisibility)
}

func TestRoomService_GetRoom_PrivateRequiresMembership(t *testing.T) {
	svc, rooms, memberships := newRoomFixture(t)
	room := seedRoom(rooms, domain.VisibilityPrivate)
	member := uuid.New()
	_, err := memberships.Add(context.Background(), room.ID, member)
	require.NoError(t, err)

	fetched, err := svc.GetRoom(context.Background(), room.ID, member)
	require.NoError(t, err)
	require.Equal(t, room.ID, fetched.ID)

	_, err = svc.GetRoom(context.Background(), room.ID, uuid.New())
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRoomService_UpdateRoom_PartialUpdateByMember(t *testing.T) {
	svc, rooms, memberships := newRoomFixture(t)
	room := seedRoom(rooms, domain.VisibilityPublic)
	member := uuid.New()
	_, err := memberships.Add(context.Background(), room.ID, member)
	require.NoError(t, err)

	newName := "renamed"
	updated, err := svc.UpdateRoom(context.Background(), ports.UpdateRoomParams{
		RoomID:  room.ID,
		ActorID: member,
		Name:    &newName,
	})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.Equal(t, room.Description, updated.Description, "omitted fields keep their value")

	_, err = svc.UpdateRoom(context.Background(), ports.UpdateRoomParams{
		RoomID:  room.ID,
		ActorID: uuid.New(),
		Name:    &newName,
	})
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRoomService_DeleteRoom_MemberOnly(t *testing.T) {
	svc, rooms, memberships := newRoomFixture(t)
	room := seedRoom(rooms, domain.VisibilityPublic)
	member := uuid.New()
	_, err := memberships.Add(context.Background(), room.ID, member)
	require.NoError(t, err)

	err = svc.DeleteRoom(context.Background(), room.ID, uuid.New())
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.DeleteRoom(context.Background(), room.ID, member))
	require.Empty(t, rooms.rooms)
}
