package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SessionTokenLength is the length in characters of an issued session token.
const SessionTokenLength = 80

// Session is a revocable bearer credential tied to one user.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Token      string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	DeviceInfo string
}

// NewSession issues a session for the user with a random opaque token.
func NewSession(userID uuid.UUID, ttl time.Duration, deviceInfo string) (*Session, error) {
	token, err := generateToken(SessionTokenLength)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Session{
		UserID:     userID,
		Token:      token,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		DeviceInfo: deviceInfo,
	}, nil
}

// IsExpired reports whether the session is past its expiry.
func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

func generateToken(length int) (string, error) {
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:length], nil
}
