package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// ReactionEmojis maps the supported reaction types to their emoji.
var ReactionEmojis = map[string]string{
	"like":  "👍",
	"love":  "❤️",
	"laugh": "😂",
	"wow":   "😮",
	"sad":   "😢",
	"angry": "😠",
}

type Reaction struct {
	ID        uuid.UUID
	MessageID uuid.UUID
	UserID    uuid.UUID
	Type      string
	CreatedAt time.Time

	// Reactor is denormalized for event payloads and API responses.
	Reactor UserSnapshot
}

// ReactionParams holds parameters for adding a reaction.
type ReactionParams struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	Type      string
}

// NewReaction creates a reaction from validated params.
func NewReaction(params ReactionParams) (*Reaction, error) {
	if _, ok := ReactionEmojis[params.Type]; !ok {
		return nil, apperrors.ErrInvalidReactionType
	}

	return &Reaction{
		MessageID: params.MessageID,
		UserID:    params.UserID,
		Type:      params.Type,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Emoji returns the emoji for the reaction's type.
func (r *Reaction) Emoji() string {
	if emoji, ok := ReactionEmojis[r.Type]; ok {
		return emoji
	}
	return r.Type
}

// BelongsTo reports whether the reaction was made by the given user.
func (r *Reaction) BelongsTo(userID uuid.UUID) bool {
	return r.UserID == userID
}
