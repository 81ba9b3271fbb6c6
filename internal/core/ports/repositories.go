package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

// TxRunner executes a function inside a storage transaction. Repository
// calls made with the callback's context join the transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository persists user identities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// SessionRepository persists session tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// RoomRepository persists rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)
	ListAccessibleTo(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error)
	Update(ctx context.Context, room *domain.Room) (*domain.Room, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MembershipRepository persists the room/user membership relation.
type MembershipRepository interface {
	// IsMember reports whether a membership record exists for the pair.
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	// Add inserts a membership record. Returns domain errors for a missing
	// room or an existing pair.
	Add(ctx context.Context, roomID, userID uuid.UUID) (*domain.Membership, error)
	// Remove deletes a membership record, reporting whether one existed.
	Remove(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	// ListMembers returns the users persisted as members of the room.
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.User, error)
}

// MessageRepository persists messages.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByRoom returns messages for a room ordered newest first.
	ListByRoom(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	Update(ctx context.Context, message *domain.Message) (*domain.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReactionRepository persists reactions.
type ReactionRepository interface {
	Create(ctx context.Context, reaction *domain.Reaction) (*domain.Reaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reaction, error)
	// Find locates a user's reaction of a given type on a message.
	Find(ctx context.Context, messageID, userID uuid.UUID, reactionType string) (*domain.Reaction, error)
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]*domain.Reaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
