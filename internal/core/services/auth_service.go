package services

import (
	"context"
	"errors"
	"time"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// AuthService implements authentication business logic: account registration
// and login, plus issuing, validating, refreshing and revoking the opaque
// session tokens that every other surface authenticates with.
type AuthService struct {
	userRepo    ports.UserRepository
	sessionRepo ports.SessionRepository
	sessionTTL  time.Duration
}

var _ ports.AuthService = (*AuthService)(nil)
var _ ports.SessionValidator = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo ports.UserRepository, sessionRepo ports.SessionRepository, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
	}
}

// Register creates a new user account and opens its first session.
func (s *AuthService) Register(ctx context.Context, params ports.RegisterParams) (*domain.User, *domain.Session, error) {
	user, err := domain.NewUser(domain.UserRegistrationParams{
		Username: params.Username,
		Password: params.Password,
		Avatar:   params.Avatar,
	})
	if err != nil {
		return nil, nil, err
	}

	// Check for an existing username first to return a friendly conflict;
	// the unique constraint still backstops the race.
	_, err = s.userRepo.GetByUsername(ctx, params.Username)
	if err == nil {
		return nil, nil, apperrors.ErrUsernameTaken
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, nil, err
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.openSession(ctx, created, params.DeviceInfo)
	if err != nil {
		return nil, nil, err
	}
	return created, session, nil
}

// Login authenticates a user with username and password and opens a session.
func (s *AuthService) Login(ctx context.Context, username, password, deviceInfo string) (*domain.User, *domain.Session, error) {
	if username == "" {
		return nil, nil, apperrors.ErrUsernameRequired
	}
	if password == "" {
		return nil, nil, apperrors.ErrPasswordRequired
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't reveal whether the username exists.
			return nil, nil, apperrors.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !user.CheckPassword(password) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user, deviceInfo)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout revokes the session behind the given token. Revoking an unknown
// token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.DeleteByToken(ctx, token)
}

// Refresh extends the expiry of a valid session.
func (s *AuthService) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	_, session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	session.ExpiresAt = time.Now().UTC().Add(s.sessionTTL)
	if err := s.sessionRepo.ExtendExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
		return nil, err
	}
	return session, nil
}

// ValidateSession resolves a bearer token to its identity. Expired sessions
// are deleted on sight and reported as unauthenticated.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.User, *domain.Session, error) {
	if token == "" {
		return nil, nil, apperrors.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrUnauthenticated
		}
		return nil, nil, err
	}

	if session.IsExpired() {
		_ = s.sessionRepo.DeleteByID(ctx, session.ID)
		return nil, nil, apperrors.ErrSessionExpired
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, nil, apperrors.ErrUnauthenticated
		}
		return nil, nil, err
	}

	return user, session, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User, deviceInfo string) (*domain.Session, error) {
	session, err := domain.NewSession(user.ID, s.sessionTTL, deviceInfo)
	if err != nil {
		return nil, err
	}
	return s.sessionRepo.Create(ctx, session)
}
