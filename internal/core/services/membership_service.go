package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// MembershipService is the authoritative registry of room membership. Joins
// and leaves are self-service, as in the room join API: the actor must be the
// affected user.
type MembershipService struct {
	membershipRepo ports.MembershipRepository
	roomRepo       ports.RoomRepository
	publisher      ports.EventPublisher
}

var _ ports.MembershipService = (*MembershipService)(nil)

// NewMembershipService creates a new membership registry service.
func NewMembershipService(
	membershipRepo ports.MembershipRepository,
	roomRepo ports.RoomRepository,
	publisher ports.EventPublisher,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
		publisher:      publisher,
	}
}

// IsMember reports whether a membership record exists for the pair.
func (s *MembershipService) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return s.membershipRepo.IsMember(ctx, roomID, userID)
}

// IsPublic reports room visibility, failing with ErrRoomNotFound when the
// room is absent.
func (s *MembershipService) IsPublic(ctx context.Context, roomID uuid.UUID) (bool, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	return room.IsPublic(), nil
}

// Add records the user joining the room. The membership write is the
// authoritative step; the room.joined notification to the member's other
// devices is a post-commit side effect.
func (s *MembershipService) Add(ctx context.Context, roomID, userID, actorID uuid.UUID) (*domain.Membership, error) {
	if actorID != userID {
		return nil, apperrors.ErrForbidden
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	membership, err := s.membershipRepo.Add(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(domain.NewRoomMembershipEvent(room, userID, domain.EventRoomJoined))

	return membership, nil
}

// Remove records the user leaving the room, reporting whether a membership
// existed. Live room-channel subscriptions are not evicted; the membership
// check happens at subscribe time only.
func (s *MembershipService) Remove(ctx context.Context, roomID, userID, actorID uuid.UUID) (bool, error) {
	if actorID != userID {
		return false, apperrors.ErrForbidden
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return false, err
	}

	removed, err := s.membershipRepo.Remove(ctx, roomID, userID)
	if err != nil {
		return false, err
	}

	if removed {
		_ = s.publisher.Publish(domain.NewRoomMembershipEvent(room, userID, domain.EventRoomLeft))
	}

	return removed, nil
}

// ListMembers returns the persisted members of a room. Private rooms only
// reveal their roster to members.
func (s *MembershipService) ListMembers(ctx context.Context, roomID, viewerID uuid.UUID) ([]*domain.User, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.IsPublic() {
		isMember, err := s.membershipRepo.IsMember(ctx, roomID, viewerID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperrors.ErrForbidden
		}
	}

	return s.membershipRepo.ListMembers(ctx, roomID)
}
