package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// MaxMessageLength limits message content, matching the API contract.
const MaxMessageLength = 2000

type Message struct {
	ID        uuid.UUID
	RoomID    uuid.UUID
	UserID    uuid.UUID
	Content   string
	CreatedAt time.Time

	// Author is denormalized for event payloads and API responses.
	Author UserSnapshot
}

// MessageParams holds parameters for creating a message.
type MessageParams struct {
	RoomID  uuid.UUID
	UserID  uuid.UUID
	Content string
}

// NewMessage creates a message from validated params.
func NewMessage(params MessageParams) (*Message, error) {
	if params.Content == "" {
		return nil, apperrors.ErrContentRequired
	}
	if len(params.Content) > MaxMessageLength {
		return nil, apperrors.ErrContentTooLong
	}

	return &Message{
		RoomID:    params.RoomID,
		UserID:    params.UserID,
		Content:   params.Content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsAuthoredBy reports whether the message belongs to the given user.
func (m *Message) IsAuthoredBy(userID uuid.UUID) bool {
	return m.UserID == userID
}
