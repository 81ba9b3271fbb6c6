package domain

import "github.com/google/uuid"

// EventType is the wire name of a real-time event.
type EventType string

const (
	EventMessageNew      EventType = "message.new"
	EventReactionNew     EventType = "reaction.new"
	EventReactionRemoved EventType = "reaction.removed"
	EventPresenceJoin    EventType = "presence.join"
	EventPresenceLeave   EventType = "presence.leave"
	// Membership sync events delivered on the member's own user channel
	// so their other devices observe joins and leaves.
	EventRoomJoined EventType = "room.joined"
	EventRoomLeft   EventType = "room.left"

	// Subscription control events, delivered to a single connection.
	EventSubscriptionSucceeded EventType = "subscription.succeeded"
	EventSubscriptionError     EventType = "subscription.error"
)

// Event is a domain event routed to one channel. Payload is one of the
// closed set of payload structs below; each variant carries everything
// needed to forward it without a further query.
type Event struct {
	Channel Channel
	Type    EventType
	Payload any

	// SocketID of the originating connection, skipped during fan-out.
	// The sender's own HTTP response already carries the authoritative
	// copy. Empty means deliver to every subscriber.
	SocketID string
}

// Envelope is the JSON frame delivered to subscribers.
type Envelope struct {
	Channel string    `json:"channel"`
	Event   EventType `json:"event"`
	Payload any       `json:"payload"`
}

// Envelope returns the wire representation of the event.
func (e Event) Envelope() Envelope {
	return Envelope{
		Channel: e.Channel.String(),
		Event:   e.Type,
		Payload: e.Payload,
	}
}

// UserSnapshot is the denormalized identity included in payloads.
type UserSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// MessageData is the wire shape of a message.
type MessageData struct {
	ID        string       `json:"id"`
	Content   string       `json:"content"`
	CreatedAt string       `json:"created_at"`
	User      UserSnapshot `json:"user"`
}

// MessagePayload is carried by message.new events.
type MessagePayload struct {
	Message MessageData `json:"message"`
}

// ReactionData is the wire shape of a reaction.
type ReactionData struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	Emoji     string       `json:"emoji"`
	MessageID string       `json:"message_id"`
	User      UserSnapshot `json:"user"`
}

// ReactionPayload is carried by reaction.new and reaction.removed events.
type ReactionPayload struct {
	Reaction ReactionData `json:"reaction"`
}

// PresencePayload is carried by presence.join and presence.leave events.
type PresencePayload struct {
	User UserSnapshot `json:"user"`
}

// MembersPayload is carried by subscription.succeeded replies.
type MembersPayload struct {
	Members []UserSnapshot `json:"members"`
}

// SubscriptionErrorPayload is carried by subscription.error replies. The
// reason is deliberately generic so a denied subscribe does not reveal
// whether the room exists.
type SubscriptionErrorPayload struct {
	Reason string `json:"reason"`
}

// RoomMembershipPayload is carried by room.joined and room.left events on a
// user channel.
type RoomMembershipPayload struct {
	Room struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Visibility string `json:"visibility"`
	} `json:"room"`
}

// NewMessageEvent builds a message.new event for the message's room channel.
func NewMessageEvent(message *Message, socketID string) Event {
	return Event{
		Channel: RoomChannel(message.RoomID),
		Type:    EventMessageNew,
		Payload: MessagePayload{
			Message: MessageData{
				ID:        message.ID.String(),
				Content:   message.Content,
				CreatedAt: message.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z"),
				User:      message.Author,
			},
		},
		SocketID: socketID,
	}
}

// NewReactionEvent builds a reaction.new or reaction.removed event for the
// room the reacted-to message lives in.
func NewReactionEvent(reaction *Reaction, roomID uuid.UUID, eventType EventType, socketID string) Event {
	return Event{
		Channel: RoomChannel(roomID),
		Type:    eventType,
		Payload: ReactionPayload{
			Reaction: ReactionData{
				ID:        reaction.ID.String(),
				Type:      reaction.Type,
				Emoji:     reaction.Emoji(),
				MessageID: reaction.MessageID.String(),
				User:      reaction.Reactor,
			},
		},
		SocketID: socketID,
	}
}

// NewPresenceEvent builds a presence.join or presence.leave event.
func NewPresenceEvent(channel Channel, user UserSnapshot, eventType EventType) Event {
	return Event{
		Channel: channel,
		Type:    eventType,
		Payload: PresencePayload{User: user},
	}
}

// NewRoomMembershipEvent builds a room.joined or room.left event for the
// member's private channel.
func NewRoomMembershipEvent(room *Room, userID uuid.UUID, eventType EventType) Event {
	payload := RoomMembershipPayload{}
	payload.Room.ID = room.ID.String()
	payload.Room.Name = room.Name
	payload.Room.Visibility = string(room.Visibility)

	return Event{
		Channel: UserChannel(userID),
		Type:    eventType,
		Payload: payload,
	}
}
