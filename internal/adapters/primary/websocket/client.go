package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Clients only send control
	// frames; chat content travels over HTTP.
	maxMessageSize = 1024

	// Outbound frame buffer per connection.
	sendBufferSize = 256
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound frames, serialized before queueing.
	Send chan []byte

	// SocketID uniquely identifies this connection for the lifetime of
	// the socket. Echo suppression matches against it.
	SocketID string

	// UserID of the authenticated session behind this connection.
	UserID uuid.UUID

	// User is the identity attached to presence events.
	User domain.UserSnapshot

	// subscriptions holds the channels this connection is attached to.
	subscriptions map[domain.Channel]bool

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// closed marks Send as closed; guarded by mu. Frames enqueued after
	// the connection is torn down are dropped, never sent on the closed
	// channel.
	closed bool

	// mu protects the subscriptions map and the closed flag
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client for an authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, user *domain.User, logger *slog.Logger) *Client {
	socketID := uuid.NewString()
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		SocketID:      socketID,
		UserID:        user.ID,
		User:          user.Snapshot(),
		subscriptions: make(map[domain.Channel]bool),
		logger:        logger.With("user_id", user.ID.String(), "socket_id", socketID),
	}
}

// CloseSend safely closes the Send channel exactly once. The write lock
// waits out any in-flight enqueue, so no goroutine can be mid-send on the
// channel when it closes.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()
	})
}

// enqueue queues a serialized frame for delivery. It reports false only
// when the buffer of a live connection is full; a frame arriving after the
// connection was closed is dropped silently, since teardown is already
// underway.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return true
	}

	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// isClosed reports whether the connection has been torn down.
func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) addSubscription(channel domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[channel] = true
}

func (c *Client) removeSubscription(channel domain.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, channel)
}

func (c *Client) hasSubscription(channel domain.Channel) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channel]
}

// subscriptionList returns a copy of the channels this connection is
// attached to.
func (c *Client) subscriptionList() []domain.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	channels := make([]domain.Channel, 0, len(c.subscriptions))
	for channel := range c.subscriptions {
		channels = append(channels, channel)
	}
	return channels
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChannelPayload is the payload for subscribe/unsubscribe messages.
type ChannelPayload struct {
	Channel string `json:"channel"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.handleSubscribe(msg.Payload)

	case "unsubscribe":
		c.handleUnsubscribe(msg.Payload)

	case "ping":
		// Client-side keep-alive, respond with pong
		c.sendPong()

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleSubscribe(payload json.RawMessage) {
	var p ChannelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal subscribe payload", "error", err)
		return
	}

	c.Hub.Subscribe(c, p.Channel)
}

func (c *Client) handleUnsubscribe(payload json.RawMessage) {
	var p ChannelPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal unsubscribe payload", "error", err)
		return
	}

	channel, err := domain.ParseChannel(p.Channel)
	if err != nil {
		return
	}
	c.Hub.Unsubscribe(c, channel)
}

func (c *Client) sendPong() {
	frame, err := json.Marshal(domain.Envelope{Event: "pong"})
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		// Channel full, skip pong response
		c.logger.Debug("send buffer full, dropping pong")
	}
}
