package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

const (
	DefaultUserPageSize = 50
	MaxUserPageSize     = 100
)

// UserService implements user lookup logic.
type UserService struct {
	userRepo ports.UserRepository
}

var _ ports.UserService = (*UserService)(nil)

// NewUserService creates a new user service.
func NewUserService(userRepo ports.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetUser fetches a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns a page of users ordered by username.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = DefaultUserPageSize
	}
	if limit > MaxUserPageSize {
		limit = MaxUserPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.userRepo.List(ctx, limit, offset)
}
