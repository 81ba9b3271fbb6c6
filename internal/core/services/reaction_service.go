package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// ReactionService implements reaction business logic. Adds and removals fan
// out reaction.new / reaction.removed to the room channel after the
// persistence write, excluding the actor's own connection.
type ReactionService struct {
	reactionRepo ports.ReactionRepository
	messageRepo  ports.MessageRepository
	roomRepo     ports.RoomRepository
	membership   ports.MembershipService
	publisher    ports.EventPublisher
}

var _ ports.ReactionService = (*ReactionService)(nil)

// NewReactionService creates a new reaction service.
func NewReactionService(
	reactionRepo ports.ReactionRepository,
	messageRepo ports.MessageRepository,
	roomRepo ports.RoomRepository,
	membership ports.MembershipService,
	publisher ports.EventPublisher,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		messageRepo:  messageRepo,
		roomRepo:     roomRepo,
		membership:   membership,
		publisher:    publisher,
	}
}

// accessibleMessage loads a message the user may act on: its room is public
// or the user is a member.
func (s *ReactionService) accessibleMessage(ctx context.Context, messageID, userID uuid.UUID) (*domain.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, message.RoomID)
	if err != nil {
		return nil, err
	}
	if room.IsPublic() {
		return message, nil
	}

	isMember, err := s.membership.IsMember(ctx, message.RoomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperrors.ErrForbidden
	}
	return message, nil
}

// AddReaction persists a reaction and publishes reaction.new. Reacting twice
// with the same type is a conflict.
func (s *ReactionService) AddReaction(ctx context.Context, params ports.ReactionActionParams) (*domain.Reaction, error) {
	message, err := s.accessibleMessage(ctx, params.MessageID, params.ActorID)
	if err != nil {
		return nil, err
	}

	reaction, err := domain.NewReaction(domain.ReactionParams{
		MessageID: params.MessageID,
		UserID:    params.ActorID,
		Type:      params.Type,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.reactionRepo.Create(ctx, reaction)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(domain.NewReactionEvent(created, message.RoomID, domain.EventReactionNew, params.SocketID))

	return created, nil
}

// ToggleReaction adds the reaction if the user doesn't have one of this type
// on the message, otherwise removes it. The boolean reports whether the
// reaction exists afterwards.
func (s *ReactionService) ToggleReaction(ctx context.Context, params ports.ReactionActionParams) (*domain.Reaction, bool, error) {
	if _, ok := domain.ReactionEmojis[params.Type]; !ok {
		return nil, false, apperrors.ErrInvalidReactionType
	}

	message, err := s.accessibleMessage(ctx, params.MessageID, params.ActorID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.reactionRepo.Find(ctx, params.MessageID, params.ActorID, params.Type)
	if err != nil && !errors.Is(err, apperrors.ErrReactionNotFound) {
		return nil, false, err
	}

	if existing != nil {
		if err := s.reactionRepo.Delete(ctx, existing.ID); err != nil {
			return nil, false, err
		}
		_ = s.publisher.Publish(domain.NewReactionEvent(existing, message.RoomID, domain.EventReactionRemoved, params.SocketID))
		return existing, false, nil
	}

	reaction, err := domain.NewReaction(domain.ReactionParams{
		MessageID: params.MessageID,
		UserID:    params.ActorID,
		Type:      params.Type,
	})
	if err != nil {
		return nil, false, err
	}

	created, err := s.reactionRepo.Create(ctx, reaction)
	if err != nil {
		return nil, false, err
	}

	_ = s.publisher.Publish(domain.NewReactionEvent(created, message.RoomID, domain.EventReactionNew, params.SocketID))

	return created, true, nil
}

// RemoveReaction deletes the actor's own reaction and publishes
// reaction.removed.
func (s *ReactionService) RemoveReaction(ctx context.Context, reactionID, actorID uuid.UUID, socketID string) error {
	reaction, err := s.reactionRepo.GetByID(ctx, reactionID)
	if err != nil {
		return err
	}
	if !reaction.BelongsTo(actorID) {
		return apperrors.ErrForbidden
	}

	message, err := s.messageRepo.GetByID(ctx, reaction.MessageID)
	if err != nil {
		return err
	}

	if err := s.reactionRepo.Delete(ctx, reactionID); err != nil {
		return err
	}

	_ = s.publisher.Publish(domain.NewReactionEvent(reaction, message.RoomID, domain.EventReactionRemoved, socketID))

	return nil
}

// ListMessageReactions returns the reactions on a message, subject to room
// access.
func (s *ReactionService) ListMessageReactions(ctx context.Context, messageID, viewerID uuid.UUID) ([]*domain.Reaction, error) {
	if _, err := s.accessibleMessage(ctx, messageID, viewerID); err != nil {
		return nil, err
	}
	return s.reactionRepo.ListByMessage(ctx, messageID)
}
