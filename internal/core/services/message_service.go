package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// Message listing bounds, matching the API contract.
const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 100
)

// MessageService implements the message write and read paths. The write path
// persists first and fans out second; a fan-out failure never rolls back or
// fails the write.
type MessageService struct {
	messageRepo ports.MessageRepository
	roomRepo    ports.RoomRepository
	membership  ports.MembershipService
	publisher   ports.EventPublisher
}

var _ ports.MessageService = (*MessageService)(nil)

// NewMessageService creates a new message service.
func NewMessageService(
	messageRepo ports.MessageRepository,
	roomRepo ports.RoomRepository,
	membership ports.MembershipService,
	publisher ports.EventPublisher,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		membership:  membership,
		publisher:   publisher,
	}
}

// canAccessRoom reports whether the user may read or post in the room:
// public room, or private room they belong to.
func (s *MessageService) canAccessRoom(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.IsPublic() {
		return nil
	}

	isMember, err := s.membership.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.ErrForbidden
	}
	return nil
}

// CreateMessage persists a message and then publishes message.new to the
// room channel, excluding the sender's own connection. The publish is best
// effort: the message send succeeds even if no live subscriber receives it.
func (s *MessageService) CreateMessage(ctx context.Context, params ports.CreateMessageParams) (*domain.Message, error) {
	if err := s.canAccessRoom(ctx, params.RoomID, params.ActorID); err != nil {
		return nil, err
	}

	message, err := domain.NewMessage(domain.MessageParams{
		RoomID:  params.RoomID,
		UserID:  params.ActorID,
		Content: params.Content,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.messageRepo.Create(ctx, message)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(domain.NewMessageEvent(created, params.SocketID))

	return created, nil
}

// GetMessage retrieves one message, subject to room access.
func (s *MessageService) GetMessage(ctx context.Context, messageID, viewerID uuid.UUID) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if err := s.canAccessRoom(ctx, message.RoomID, viewerID); err != nil {
		return nil, err
	}
	return message, nil
}

// ListRoomMessages returns a page of room messages, newest first.
func (s *MessageService) ListRoomMessages(ctx context.Context, params ports.ListMessagesParams) ([]*domain.Message, error) {
	if err := s.canAccessRoom(ctx, params.RoomID, params.ViewerID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultMessagePageSize
	}
	if limit > MaxMessagePageSize {
		limit = MaxMessagePageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	return s.messageRepo.ListByRoom(ctx, params.RoomID, limit, offset)
}

// UpdateMessage edits a message's content. Author only; edits are not
// broadcast.
func (s *MessageService) UpdateMessage(ctx context.Context, messageID, actorID uuid.UUID, content string) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !message.IsAuthoredBy(actorID) {
		return nil, apperrors.ErrForbidden
	}

	if content == "" {
		return nil, apperrors.ErrContentRequired
	}
	if len(content) > domain.MaxMessageLength {
		return nil, apperrors.ErrContentTooLong
	}

	message.Content = content
	return s.messageRepo.Update(ctx, message)
}

// DeleteMessage removes a message. Author only; deletions are not broadcast.
func (s *MessageService) DeleteMessage(ctx context.Context, messageID, actorID uuid.UUID) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !message.IsAuthoredBy(actorID) {
		return apperrors.ErrForbidden
	}

	return s.messageRepo.Delete(ctx, messageID)
}
