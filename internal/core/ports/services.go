package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params RegisterParams) (*domain.User, *domain.Session, error)
	Login(ctx context.Context, username, password, deviceInfo string) (*domain.User, *domain.Session, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*domain.Session, error)
}

// SessionValidator resolves bearer tokens to identities. Any non-success is
// unauthenticated; callers do not retry.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*domain.User, *domain.Session, error)
}

// RegisterParams defines the input for account registration.
type RegisterParams struct {
	Username   string
	Password   string
	Avatar     string
	DeviceInfo string
}

// MembershipService is the authoritative registry of which users belong to
// which rooms. Results are eventually-consistent snapshots: a racing join or
// leave may yield a stale authorization decision for one round trip.
type MembershipService interface {
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	// IsPublic reports room visibility, failing with ErrRoomNotFound when
	// the room is absent.
	IsPublic(ctx context.Context, roomID uuid.UUID) (bool, error)
	Add(ctx context.Context, roomID, userID, actorID uuid.UUID) (*domain.Membership, error)
	Remove(ctx context.Context, roomID, userID, actorID uuid.UUID) (bool, error)
	ListMembers(ctx context.Context, roomID, viewerID uuid.UUID) ([]*domain.User, error)
}

// ChannelAuthorizer decides whether a user may subscribe to a channel.
type ChannelAuthorizer interface {
	// CanSubscribe returns false for a denied subscription. Denials never
	// distinguish a missing room from a membership miss; an error means
	// the registry was unreachable, not a deny.
	CanSubscribe(ctx context.Context, userID uuid.UUID, channel domain.Channel) (bool, error)
}

// RoomService defines room CRUD business logic.
type RoomService interface {
	CreateRoom(ctx context.Context, params CreateRoomParams) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID, viewerID uuid.UUID) (*domain.Room, error)
	ListRooms(ctx context.Context, viewerID uuid.UUID) ([]*domain.Room, error)
	UpdateRoom(ctx context.Context, params UpdateRoomParams) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID, actorID uuid.UUID) error
}

// CreateRoomParams defines the input for creating a room.
type CreateRoomParams struct {
	Name        string
	Description string
	Visibility  domain.RoomVisibility
	CreatorID   uuid.UUID
}

// UpdateRoomParams defines the input for updating a room.
type UpdateRoomParams struct {
	RoomID      uuid.UUID
	ActorID     uuid.UUID
	Name        *string
	Description *string
}

// MessageService defines message business logic.
type MessageService interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (*domain.Message, error)
	GetMessage(ctx context.Context, messageID, viewerID uuid.UUID) (*domain.Message, error)
	ListRoomMessages(ctx context.Context, params ListMessagesParams) ([]*domain.Message, error)
	UpdateMessage(ctx context.Context, messageID, actorID uuid.UUID, content string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) error
}

// CreateMessageParams defines the input for sending a message.
type CreateMessageParams struct {
	RoomID  uuid.UUID
	ActorID uuid.UUID
	Content string
	// SocketID identifies the sender's live connection so fan-out can
	// suppress the echo. Empty when the sender has no connection.
	SocketID string
}

// ListMessagesParams defines the input for listing room messages.
type ListMessagesParams struct {
	RoomID   uuid.UUID
	ViewerID uuid.UUID
	Limit    int
	Offset   int
}

// ReactionService defines reaction business logic.
type ReactionService interface {
	AddReaction(ctx context.Context, params ReactionActionParams) (*domain.Reaction, error)
	// ToggleReaction adds the reaction if absent, removes it if present.
	// The boolean reports whether the reaction exists afterwards.
	ToggleReaction(ctx context.Context, params ReactionActionParams) (*domain.Reaction, bool, error)
	RemoveReaction(ctx context.Context, reactionID, actorID uuid.UUID, socketID string) error
	ListMessageReactions(ctx context.Context, messageID, viewerID uuid.UUID) ([]*domain.Reaction, error)
}

// ReactionActionParams defines the input for adding or toggling a reaction.
type ReactionActionParams struct {
	MessageID uuid.UUID
	ActorID   uuid.UUID
	Type      string
	SocketID  string
}

// UserService defines user lookup business logic.
type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error)
}
