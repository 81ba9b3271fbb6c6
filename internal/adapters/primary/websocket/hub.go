package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// authorizeTimeout bounds the membership lookup behind a subscribe request.
const authorizeTimeout = 5 * time.Second

// subscriptionDeniedReason is deliberately generic: a denied subscribe never
// reveals whether the room exists.
const subscriptionDeniedReason = "subscription denied"

// Hub maintains the set of active Clients and fans events out to them.
//
// Events are fire-and-forget: a publish reaches the connections subscribed
// at that instant and is never queued for absent ones. Each event is
// serialized once and the same frame is queued to every recipient.
type Hub struct {
	// clients maps user IDs to their active connections.
	// A single user can have multiple connections (multiple tabs/devices).
	clients map[uuid.UUID]map[*Client]bool

	// channels maps channel names to subscribed clients.
	channels map[domain.Channel]map[*Client]bool

	// presence tracks per-user liveness on presence channels.
	presence *presenceTracker

	// broadcast carries events from publishers to the fan-out loop.
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done stops the run loop.
	done chan struct{}

	// mu protects the clients and channels maps
	mu sync.RWMutex

	authorizer ports.ChannelAuthorizer

	logger *slog.Logger
}

// Ensure Hub implements the EventPublisher interface.
var _ ports.EventPublisher = (*Hub)(nil)

// NewHub creates a new WebSocket hub. The channel authorizer is bound
// separately through SetAuthorizer: the hub must exist before the services
// that publish through it, and the authorizer depends on those services.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		channels:   make(map[domain.Channel]map[*Client]bool),
		presence:   newPresenceTracker(),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// SetAuthorizer installs the channel authorizer. Until one is installed
// every subscribe request is denied.
func (h *Hub) SetAuthorizer(authorizer ports.ChannelAuthorizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authorizer = authorizer
}

// Publish queues an event for fan-out. This method implements the
// ports.EventPublisher interface; it never blocks the caller and a full
// queue drops the event rather than stalling the write path.
func (h *Hub) Publish(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"channel", event.Channel.String(),
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-h.done:
			return
		}
	}
}

// Shutdown stops the run loop and closes every client's send channel so the
// write pumps send close frames and exit.
func (h *Hub) Shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for client := range userClients {
			client.CloseSend()
		}
	}
	h.clients = make(map[uuid.UUID]map[*Client]bool)
	h.channels = make(map[domain.Channel]map[*Client]bool)
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and all channels, firing
// presence.leave wherever this was the user's last connection. Unregistering
// the same client twice has no further effect.
func (h *Hub) unregisterClient(client *Client) {
	// 1. Close the send side first. Marking the client closed before the
	// map removal means any concurrent subscribe either lands before the
	// removal (and is cleaned up below) or observes the closed state and
	// backs off.
	client.CloseSend()

	h.mu.Lock()

	// 2. Remove from the global user map
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	// 3. Remove from all subscribed channels
	for _, channel := range client.subscriptionList() {
		h.removeFromChannelLocked(client, channel)
	}
	h.mu.Unlock()

	// 4. Fire presence.leave for channels where this was the last connection
	for _, channel := range h.presence.detachAll(client.UserID, client.SocketID) {
		h.broadcastEvent(domain.NewPresenceEvent(channel, client.User, domain.EventPresenceLeave))
	}

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
		"socket_id", client.SocketID,
	)
}

func (h *Hub) removeFromChannelLocked(client *Client, channel domain.Channel) {
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}
	client.removeSubscription(channel)
}

// Subscribe attaches a client to a channel after authorization. The reply is
// delivered to the requesting connection only: subscription.succeeded with
// the current member roster, or subscription.error.
func (h *Hub) Subscribe(client *Client, name string) {
	// The read pump can outlive an eviction briefly; a subscribe from a
	// torn-down connection must not re-enter the channel maps.
	if client.isClosed() {
		return
	}

	channel, err := domain.ParseChannel(name)
	if err != nil {
		h.sendSubscriptionError(client, name)
		return
	}

	h.mu.RLock()
	authorizer := h.authorizer
	h.mu.RUnlock()
	if authorizer == nil {
		h.logger.Error("subscribe before authorizer installed",
			"channel", channel.String(),
			"user_id", client.UserID,
		)
		h.sendSubscriptionError(client, name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()

	allowed, err := authorizer.CanSubscribe(ctx, client.UserID, channel)
	if err != nil {
		h.logger.Error("channel authorization failed",
			"channel", channel.String(),
			"user_id", client.UserID,
			"error", err,
		)
		h.sendSubscriptionError(client, name)
		return
	}
	if !allowed {
		h.sendSubscriptionError(client, name)
		return
	}

	h.mu.Lock()
	// Re-check under the lock: an unregister that closed the connection
	// after the authorization round trip must win.
	if client.isClosed() {
		h.mu.Unlock()
		return
	}
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*Client]bool)
	}
	h.channels[channel][client] = true
	client.addSubscription(channel)
	h.mu.Unlock()

	if isPresenceChannel(channel) {
		joined := h.presence.attach(channel, client.User, client.UserID, client.SocketID)
		if joined {
			// Other subscribers learn about the new member; the joining
			// connection gets the roster in its succeeded reply instead.
			event := domain.NewPresenceEvent(channel, client.User, domain.EventPresenceJoin)
			event.SocketID = client.SocketID
			h.broadcastEvent(event)
		}
	}

	h.sendToClient(client, domain.Event{
		Channel: channel,
		Type:    domain.EventSubscriptionSucceeded,
		Payload: domain.MembersPayload{Members: h.presence.membersOf(channel)},
	})

	h.logger.Debug("client subscribed",
		"user_id", client.UserID,
		"channel", channel.String(),
	)
}

// Unsubscribe detaches a client from a channel, firing presence.leave if it
// was the user's last connection there.
func (h *Hub) Unsubscribe(client *Client, channel domain.Channel) {
	if !client.hasSubscription(channel) {
		return
	}

	h.mu.Lock()
	h.removeFromChannelLocked(client, channel)
	h.mu.Unlock()

	if isPresenceChannel(channel) && h.presence.detach(channel, client.UserID, client.SocketID) {
		h.broadcastEvent(domain.NewPresenceEvent(channel, client.User, domain.EventPresenceLeave))
	}

	h.logger.Debug("client unsubscribed",
		"user_id", client.UserID,
		"channel", channel.String(),
	)
}

// broadcastEvent serializes the event once and queues the frame to every
// subscriber of its channel, skipping the originating socket.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	subscribers, ok := h.channels[event.Channel]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(subscribers))
	for client := range subscribers {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	frame, err := json.Marshal(event.Envelope())
	if err != nil {
		h.logger.Error("failed to marshal event",
			"event_type", event.Type,
			"error", err,
		)
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"channel", event.Channel.String(),
		"client_count", len(clients),
	)

	var slow []*Client
	for _, client := range clients {
		if event.SocketID != "" && client.SocketID == event.SocketID {
			continue
		}
		if !client.enqueue(frame) {
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
				"socket_id", client.SocketID,
			)
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.unregisterClient(client)
	}
}

// sendToClient delivers an event to a single connection regardless of its
// subscriptions.
func (h *Hub) sendToClient(client *Client, event domain.Event) {
	frame, err := json.Marshal(event.Envelope())
	if err != nil {
		h.logger.Error("failed to marshal event",
			"event_type", event.Type,
			"error", err,
		)
		return
	}
	if !client.enqueue(frame) {
		h.logger.Warn("client send buffer full, dropping direct event",
			"user_id", client.UserID,
			"event_type", event.Type,
		)
	}
}

func (h *Hub) sendSubscriptionError(client *Client, name string) {
	h.sendToClient(client, domain.Event{
		Channel: domain.Channel(name),
		Type:    domain.EventSubscriptionError,
		Payload: domain.SubscriptionErrorPayload{Reason: subscriptionDeniedReason},
	})
}

// isPresenceChannel reports whether member liveness is tracked and announced
// on the channel. User channels are private pipes and carry no presence.
func isPresenceChannel(channel domain.Channel) bool {
	return channel.Kind() != domain.ChannelUser
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetChannelCount returns the number of channels with at least one subscriber
func (h *Hub) GetChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// GetSubscriberCount returns the number of connections subscribed to a channel
func (h *Hub) GetSubscriberCount(channel domain.Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subscribers, ok := h.channels[channel]; ok {
		return len(subscribers)
	}
	return 0
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}
