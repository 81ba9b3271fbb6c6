package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// RoomVisibility governs who may subscribe to a room's channel.
type RoomVisibility string

const (
	VisibilityPublic  RoomVisibility = "public"
	VisibilityPrivate RoomVisibility = "private"
)

// MaxRoomNameLength limits room names.
const MaxRoomNameLength = 255

type Room struct {
	ID          uuid.UUID
	Name        string
	Description string
	Visibility  RoomVisibility
	CreatedAt   time.Time
}

// RoomParams holds parameters for creating a room.
type RoomParams struct {
	Name        string
	Description string
	Visibility  RoomVisibility
}

// NewRoom creates a room from validated params.
func NewRoom(params RoomParams) (*Room, error) {
	if params.Name == "" {
		return nil, apperrors.ErrRoomNameRequired
	}
	if len(params.Name) > MaxRoomNameLength {
		return nil, apperrors.ErrRoomNameTooLong
	}

	visibility := params.Visibility
	if visibility == "" {
		visibility = VisibilityPublic
	}
	if visibility != VisibilityPublic && visibility != VisibilityPrivate {
		return nil, apperrors.ErrInvalidVisibility
	}

	return &Room{
		Name:        params.Name,
		Description: params.Description,
		Visibility:  visibility,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// IsPublic reports whether the room is open to any authenticated user.
func (r *Room) IsPublic() bool {
	return r.Visibility == VisibilityPublic
}

// Membership is the persisted record that a user belongs to a room.
type Membership struct {
	RoomID   uuid.UUID
	UserID   uuid.UUID
	JoinedAt time.Time
}
