package domain

import (
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// Validation constants
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxUsernameLength = 255
)

// DefaultAvatar is assigned to accounts created without an avatar.
const DefaultAvatar = ""

type User struct {
	ID             uuid.UUID
	Username       string
	Avatar         string
	HashedPassword string
	CreatedAt      time.Time
}

// UserRegistrationParams holds parameters for user registration
type UserRegistrationParams struct {
	Username string
	Password string
	Avatar   string
}

// Validate validates user registration parameters
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.Username == "" {
		errs.Add("username", "Username is required")
	} else if len(p.Username) > MaxUsernameLength {
		errs.Add("username", "Username must be 255 characters or less")
	}

	if p.Password == "" {
		errs.Add("password", "Password is required")
	} else {
		if len(p.Password) < MinPasswordLength {
			errs.Add("password", "Password must be at least 8 characters")
		}
		if len(p.Password) > MaxPasswordLength {
			errs.Add("password", "Password must be 128 characters or less")
		}
		if !containsLetterAndNumber(p.Password) {
			errs.Add("password", "Password must contain at least one letter and one number")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func containsLetterAndNumber(s string) bool {
	var hasLetter, hasNumber bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}

// NewUser creates a user with a hashed password from validated params.
func NewUser(params UserRegistrationParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	avatar := params.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}

	return &User{
		Username:       params.Username,
		Avatar:         avatar,
		HashedPassword: string(hashed),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)) == nil
}

// Snapshot returns the denormalized identity attached to outbound events.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:       u.ID.String(),
		Username: u.Username,
		Avatar:   u.Avatar,
	}
}
