package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

const (
	waitFor = time.Second
	tick    = 10 * time.Millisecond
)

type allowAllAuthorizer struct{}

func (allowAllAuthorizer) CanSubscribe(_ context.Context, _ uuid.UUID, _ domain.Channel) (bool, error) {
	return true, nil
}

type denyAllAuthorizer struct{ err error }

func (a denyAllAuthorizer) CanSubscribe(_ context.Context, _ uuid.UUID, _ domain.Channel) (bool, error) {
	return false, a.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *Hub {
	hub := NewHub(testLogger())
	hub.SetAuthorizer(allowAllAuthorizer{})
	return hub
}

// testClient wires a client into the hub without a live websocket. Frames
// land in the Send buffer where tests can inspect them.
func testClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	user := &domain.User{ID: uuid.New(), Username: "user-" + uuid.NewString()[:8]}
	client := NewClient(hub, nil, user, testLogger())
	hub.registerClient(client)
	return client
}

func drainFrames(t *testing.T, client *Client) []domain.Envelope {
	t.Helper()
	var frames []domain.Envelope
	for {
		select {
		case frame, ok := <-client.Send:
			if !ok {
				return frames
			}
			var envelope domain.Envelope
			require.NoError(t, json.Unmarshal(frame, &envelope))
			frames = append(frames, envelope)
		default:
			return frames
		}
	}
}

func eventTypes(envelopes []domain.Envelope) []domain.EventType {
	types := make([]domain.EventType, 0, len(envelopes))
	for _, envelope := range envelopes {
		types = append(types, envelope.Event)
	}
	return types
}

func TestHub_Subscribe_RepliesWithSucceededAndRoster(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	first := testClient(t, hub)
	hub.Subscribe(first, channel.String())

	frames := drainFrames(t, first)
	require.Len(t, frames, 1)
	require.Equal(t, domain.EventSubscriptionSucceeded, frames[0].Event)
	require.Equal(t, channel.String(), frames[0].Channel)

	second := testClient(t, hub)
	hub.Subscribe(second, channel.String())

	frames = drainFrames(t, second)
	require.Len(t, frames, 1)

	var members domain.MembersPayload
	raw, err := json.Marshal(frames[0].Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &members))
	require.Len(t, members.Members, 2, "roster includes both present users")
}

func TestHub_Subscribe_InvalidChannelGetsError(t *testing.T) {
	hub := newTestHub()
	client := testClient(t, hub)

	hub.Subscribe(client, "rooms/123")

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	require.Equal(t, domain.EventSubscriptionError, frames[0].Event)
}

func TestHub_Subscribe_DeniedGetsGenericError(t *testing.T) {
	hub := NewHub(testLogger())
	hub.SetAuthorizer(denyAllAuthorizer{})
	client := testClient(t, hub)

	hub.Subscribe(client, domain.RoomChannel(uuid.New()).String())

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	require.Equal(t, domain.EventSubscriptionError, frames[0].Event)

	raw, err := json.Marshal(frames[0].Payload)
	require.NoError(t, err)
	var payload domain.SubscriptionErrorPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.Equal(t, subscriptionDeniedReason, payload.Reason)
	require.Equal(t, 0, hub.GetChannelCount())
}

func TestHub_Subscribe_AuthorizerFailureDoesNotSubscribe(t *testing.T) {
	hub := NewHub(testLogger())
	hub.SetAuthorizer(denyAllAuthorizer{err: errors.New("registry down")})
	client := testClient(t, hub)

	hub.Subscribe(client, domain.RoomChannel(uuid.New()).String())

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	require.Equal(t, domain.EventSubscriptionError, frames[0].Event)
	require.Equal(t, 0, hub.GetChannelCount())
}

func TestHub_Broadcast_ReachesOnlySubscribedChannel(t *testing.T) {
	hub := newTestHub()
	roomA := domain.RoomChannel(uuid.New())
	roomB := domain.RoomChannel(uuid.New())

	inA := testClient(t, hub)
	inB := testClient(t, hub)
	hub.Subscribe(inA, roomA.String())
	hub.Subscribe(inB, roomB.String())
	drainFrames(t, inA)
	drainFrames(t, inB)

	hub.broadcastEvent(domain.Event{
		Channel: roomA,
		Type:    domain.EventMessageNew,
		Payload: domain.MessagePayload{},
	})

	framesA := drainFrames(t, inA)
	require.Equal(t, []domain.EventType{domain.EventMessageNew}, eventTypes(framesA))
	require.Empty(t, drainFrames(t, inB), "event must not leak across channels")
}

func TestHub_Broadcast_SkipsOriginatingSocket(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	sender := testClient(t, hub)
	receiver := testClient(t, hub)
	hub.Subscribe(sender, channel.String())
	hub.Subscribe(receiver, channel.String())
	drainFrames(t, sender)
	drainFrames(t, receiver)

	hub.broadcastEvent(domain.Event{
		Channel:  channel,
		Type:     domain.EventMessageNew,
		Payload:  domain.MessagePayload{},
		SocketID: sender.SocketID,
	})

	require.Empty(t, drainFrames(t, sender), "sender must not receive its own echo")
	require.Len(t, drainFrames(t, receiver), 1)
}

func TestHub_Subscribe_AnnouncesJoinToOthersOnce(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	watcher := testClient(t, hub)
	hub.Subscribe(watcher, channel.String())
	drainFrames(t, watcher)

	joiner := testClient(t, hub)
	hub.Subscribe(joiner, channel.String())

	frames := drainFrames(t, watcher)
	require.Equal(t, []domain.EventType{domain.EventPresenceJoin}, eventTypes(frames))

	// A second device of the same user must not announce again.
	secondDevice := NewClient(hub, nil, &domain.User{ID: joiner.UserID, Username: joiner.User.Username}, testLogger())
	hub.registerClient(secondDevice)
	hub.Subscribe(secondDevice, channel.String())

	require.Empty(t, drainFrames(t, watcher))
}

func TestHub_Unregister_AnnouncesLeaveOnLastConnectionOnly(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	watcher := testClient(t, hub)
	hub.Subscribe(watcher, channel.String())

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	deviceOne := NewClient(hub, nil, user, testLogger())
	deviceTwo := NewClient(hub, nil, user, testLogger())
	hub.registerClient(deviceOne)
	hub.registerClient(deviceTwo)
	hub.Subscribe(deviceOne, channel.String())
	hub.Subscribe(deviceTwo, channel.String())
	drainFrames(t, watcher)

	hub.unregisterClient(deviceOne)
	require.Empty(t, drainFrames(t, watcher), "one device remains, no leave yet")

	hub.unregisterClient(deviceTwo)
	frames := drainFrames(t, watcher)
	require.Equal(t, []domain.EventType{domain.EventPresenceLeave}, eventTypes(frames))

	require.False(t, hub.IsUserConnected(user.ID))
}

func TestHub_Unregister_IsIdempotent(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	watcher := testClient(t, hub)
	hub.Subscribe(watcher, channel.String())

	client := testClient(t, hub)
	hub.Subscribe(client, channel.String())
	drainFrames(t, watcher)

	hub.unregisterClient(client)
	hub.unregisterClient(client)

	frames := drainFrames(t, watcher)
	require.Equal(t, []domain.EventType{domain.EventPresenceLeave}, eventTypes(frames), "leave fires exactly once")
	require.Equal(t, 1, hub.GetClientCount())
}

func TestHub_Unsubscribe_RemovesOnlyThatChannel(t *testing.T) {
	hub := newTestHub()
	roomA := domain.RoomChannel(uuid.New())
	roomB := domain.RoomChannel(uuid.New())

	client := testClient(t, hub)
	hub.Subscribe(client, roomA.String())
	hub.Subscribe(client, roomB.String())
	drainFrames(t, client)

	hub.Unsubscribe(client, roomA)

	hub.broadcastEvent(domain.Event{Channel: roomA, Type: domain.EventMessageNew})
	hub.broadcastEvent(domain.Event{Channel: roomB, Type: domain.EventMessageNew})

	frames := drainFrames(t, client)
	require.Len(t, frames, 1)
	require.Equal(t, roomB.String(), frames[0].Channel)
}

func TestHub_UserChannelCarriesNoPresence(t *testing.T) {
	hub := newTestHub()

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	deviceOne := NewClient(hub, nil, user, testLogger())
	deviceTwo := NewClient(hub, nil, user, testLogger())
	hub.registerClient(deviceOne)
	hub.registerClient(deviceTwo)

	channel := domain.UserChannel(user.ID)
	hub.Subscribe(deviceOne, channel.String())
	drainFrames(t, deviceOne)

	hub.Subscribe(deviceTwo, channel.String())

	require.Empty(t, drainFrames(t, deviceOne), "no presence.join on user channels")
	require.Empty(t, hub.presence.membersOf(channel))
}

func TestHub_PublishAndRunLoopDeliverEvents(t *testing.T) {
	hub := newTestHub()
	go hub.Run()
	defer hub.Shutdown()

	channel := domain.RoomChannel(uuid.New())
	client := NewClient(hub, nil, &domain.User{ID: uuid.New(), Username: "alice"}, testLogger())
	hub.Register <- client

	require.Eventually(t, func() bool {
		return hub.GetClientCount() == 1
	}, waitFor, tick)

	hub.Subscribe(client, channel.String())
	drainFrames(t, client)

	require.NoError(t, hub.Publish(domain.Event{Channel: channel, Type: domain.EventMessageNew}))

	require.Eventually(t, func() bool {
		return len(client.Send) == 1
	}, waitFor, tick)

	frames := drainFrames(t, client)
	require.Equal(t, []domain.EventType{domain.EventMessageNew}, eventTypes(frames))
}

func TestHub_SlowConsumerIsUnregistered(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	client := testClient(t, hub)
	hub.Subscribe(client, channel.String())
	drainFrames(t, client)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.broadcastEvent(domain.Event{Channel: channel, Type: domain.EventMessageNew})
	}

	require.Equal(t, 0, hub.GetClientCount())
	require.Equal(t, 0, hub.GetSubscriberCount(channel))
}

func TestHub_EvictedClientReceivesNothingFurther(t *testing.T) {
	hub := newTestHub()
	channel := domain.RoomChannel(uuid.New())

	client := testClient(t, hub)
	hub.Subscribe(client, channel.String())
	drainFrames(t, client)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.broadcastEvent(domain.Event{Channel: channel, Type: domain.EventMessageNew})
	}
	require.Equal(t, 0, hub.GetClientCount())

	// The read pump can still hand the hub work after eviction closed the
	// send side. None of these may panic, deliver, or re-enter the maps.
	hub.Subscribe(client, channel.String())
	hub.sendToClient(client, domain.Event{Channel: channel, Type: domain.EventMessageNew})
	hub.broadcastEvent(domain.Event{Channel: channel, Type: domain.EventMessageNew})

	require.Equal(t, 0, hub.GetSubscriberCount(channel))

	// Everything drained predates the eviction: the buffer filled up and
	// nothing was accepted afterwards.
	frames := drainFrames(t, client)
	require.Len(t, frames, sendBufferSize)
}

func TestClient_EnqueueAfterCloseIsSuppressed(t *testing.T) {
	hub := newTestHub()
	client := testClient(t, hub)

	client.CloseSend()

	require.True(t, client.enqueue([]byte(`{}`)), "closed connection drops the frame without signalling eviction")
	require.Empty(t, drainFrames(t, client))
}
