package websocket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

func TestPresenceTracker_JoinFiresOnFirstConnectionOnly(t *testing.T) {
	tracker := newPresenceTracker()
	channel := domain.RoomChannel(uuid.New())
	userID := uuid.New()
	user := domain.UserSnapshot{ID: userID.String(), Username: "alice"}

	require.True(t, tracker.attach(channel, user, userID, "socket-1"))
	require.False(t, tracker.attach(channel, user, userID, "socket-2"), "second device must not rejoin")

	require.Len(t, tracker.membersOf(channel), 1)
}

func TestPresenceTracker_LeaveFiresOnLastConnectionOnly(t *testing.T) {
	tracker := newPresenceTracker()
	channel := domain.RoomChannel(uuid.New())
	userID := uuid.New()
	user := domain.UserSnapshot{ID: userID.String(), Username: "alice"}

	tracker.attach(channel, user, userID, "socket-1")
	tracker.attach(channel, user, userID, "socket-2")

	require.False(t, tracker.detach(channel, userID, "socket-1"), "one device remains")
	require.True(t, tracker.detach(channel, userID, "socket-2"))
	require.Empty(t, tracker.membersOf(channel))
}

func TestPresenceTracker_DetachUnknownConnectionIsNoOp(t *testing.T) {
	tracker := newPresenceTracker()
	channel := domain.RoomChannel(uuid.New())
	userID := uuid.New()

	require.False(t, tracker.detach(channel, userID, "never-attached"))

	tracker.attach(channel, domain.UserSnapshot{ID: userID.String()}, userID, "socket-1")
	require.True(t, tracker.detach(channel, userID, "socket-1"))
	require.False(t, tracker.detach(channel, userID, "socket-1"), "double detach must not fire twice")
}

func TestPresenceTracker_DetachAllReportsChannelsLeft(t *testing.T) {
	tracker := newPresenceTracker()
	roomA := domain.RoomChannel(uuid.New())
	roomB := domain.RoomChannel(uuid.New())
	online := domain.OnlineUsersChannel()
	userID := uuid.New()
	otherID := uuid.New()
	user := domain.UserSnapshot{ID: userID.String(), Username: "alice"}

	tracker.attach(roomA, user, userID, "socket-1")
	tracker.attach(roomB, user, userID, "socket-1")
	tracker.attach(online, user, userID, "socket-1")
	// A second device keeps the user present in roomB.
	tracker.attach(roomB, user, userID, "socket-2")
	tracker.attach(roomA, domain.UserSnapshot{ID: otherID.String()}, otherID, "socket-3")

	left := tracker.detachAll(userID, "socket-1")
	require.ElementsMatch(t, []domain.Channel{roomA, online}, left)

	require.Len(t, tracker.membersOf(roomB), 1)
	require.Len(t, tracker.membersOf(roomA), 1, "other users stay present")

	require.Empty(t, tracker.detachAll(userID, "socket-1"), "repeat detach reports nothing")
}

func TestPresenceTracker_MembersOfReturnsSnapshots(t *testing.T) {
	tracker := newPresenceTracker()
	channel := domain.RoomChannel(uuid.New())

	aliceID, bobID := uuid.New(), uuid.New()
	tracker.attach(channel, domain.UserSnapshot{ID: aliceID.String(), Username: "alice"}, aliceID, "socket-1")
	tracker.attach(channel, domain.UserSnapshot{ID: bobID.String(), Username: "bob"}, bobID, "socket-2")

	members := tracker.membersOf(channel)
	require.Len(t, members, 2)

	usernames := []string{members[0].Username, members[1].Username}
	require.ElementsMatch(t, []string{"alice", "bob"}, usernames)

	require.Empty(t, tracker.membersOf(domain.RoomChannel(uuid.New())))
}
