package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// RoomService implements room CRUD. Creating a room also enrolls the creator
// as its first member so private rooms are reachable by someone.
type RoomService struct {
	roomRepo       ports.RoomRepository
	membershipRepo ports.MembershipRepository
	txRunner       ports.TxRunner
}

var _ ports.RoomService = (*RoomService)(nil)

// NewRoomService creates a new room service.
func NewRoomService(roomRepo ports.RoomRepository, membershipRepo ports.MembershipRepository, txRunner ports.TxRunner) *RoomService {
	return &RoomService{
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		txRunner:       txRunner,
	}
}

// CreateRoom creates a room and enrolls the creator. Both writes happen in
// one transaction so a room never exists without its first member.
func (s *RoomService) CreateRoom(ctx context.Context, params ports.CreateRoomParams) (*domain.Room, error) {
	room, err := domain.NewRoom(domain.RoomParams{
		Name:        params.Name,
		Description: params.Description,
		Visibility:  params.Visibility,
	})
	if err != nil {
		return nil, err
	}

	var created *domain.Room
	err = s.txRunner.WithinTx(ctx, func(ctx context.Context) error {
		created, err = s.roomRepo.Create(ctx, room)
		if err != nil {
			return err
		}
		_, err = s.membershipRepo.Add(ctx, created.ID, params.CreatorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetRoom retrieves a room the viewer may see: any public room, or a private
// room the viewer belongs to.
func (s *RoomService) GetRoom(ctx context.Context, roomID, viewerID uuid.UUID) (*domain.Room, error) {
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

	return room, nil
}

// ListRooms returns every room visible to the viewer: all public rooms plus
// private rooms they belong to.
func (s *RoomService) ListRooms(ctx context.Context, viewerID uuid.UUID) ([]*domain.Room, error) {
	return s.roomRepo.ListAccessibleTo(ctx, viewerID)
}

// UpdateRoom applies partial updates. Only members may update a room.
func (s *RoomService) UpdateRoom(ctx context.Context, params ports.UpdateRoomParams) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, params.RoomID)
	if err != nil {
		return nil, err
	}

	isMember, err := s.membershipRepo.IsMember(ctx, params.RoomID, params.ActorID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apperrors.ErrForbidden
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, apperrors.ErrRoomNameRequired
		}
		if len(*params.Name) > domain.MaxRoomNameLength {
			return nil, apperrors.ErrRoomNameTooLong
		}
		room.Name = *params.Name
	}
	if params.Description != nil {
		room.Description = *params.Description
	}

	return s.roomRepo.Update(ctx, room)
}

// DeleteRoom deletes a room. Only members may delete a room; messages,
// reactions and memberships cascade in storage.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, actorID uuid.UUID) error {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return err
	}

	isMember, err := s.membershipRepo.IsMember(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.ErrForbidden
	}

	return s.roomRepo.Delete(ctx, roomID)
}
