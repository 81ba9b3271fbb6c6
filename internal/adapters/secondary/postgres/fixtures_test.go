package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// createTestUser inserts a user with a unique username.
func createTestUser(t *testing.T, ctx context.Context, userRepo ports.UserRepository) *domain.User {
	t.Helper()

	user := &domain.User{
		Username:       "user-" + uuid.NewString(),
		Avatar:         "https://example.com/avatar.png",
		HashedPassword: "not-a-real-hash",
		CreatedAt:      time.Now().UTC(),
	}
	created, err := userRepo.Create(ctx, user)
	require.NoError(t, err)
	return created
}

// createTestRoom inserts a room with the given visibility.
func createTestRoom(t *testing.T, ctx context.Context, roomRepo ports.RoomRepository, visibility domain.RoomVisibility) *domain.Room {
	t.Helper()

	room := &domain.Room{
		Name:        "room-" + uuid.NewString(),
		Description: "a test room",
		Visibility:  visibility,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := roomRepo.Create(ctx, room)
	require.NoError(t, err)
	return created
}

// createTestMessage inserts a message authored by the given user.
func createTestMessage(t *testing.T, ctx context.Context, messageRepo ports.MessageRepository, roomID, userID uuid.UUID, content string) *domain.Message {
	t.Helper()

	message := &domain.Message{
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	created, err := messageRepo.Create(ctx, message)
	require.NoError(t, err)
	return created
}
