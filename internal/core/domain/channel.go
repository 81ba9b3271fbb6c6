package domain

import (
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
)

// Channel is a logical broadcast address. It exists only while at least one
// connection is subscribed to it; nothing about it is persisted.
type Channel string

// ChannelKind classifies a channel for authorization purposes.
type ChannelKind int

const (
	// ChannelRoom carries room events and room presence ("room.<uuid>").
	ChannelRoom ChannelKind = iota
	// ChannelUser carries private notifications for one identity ("user.<uuid>").
	ChannelUser
	// ChannelOnlineUsers is the global presence channel, open to any
	// authenticated identity ("online-users").
	ChannelOnlineUsers
)

const (
	roomChannelPrefix = "room."
	userChannelPrefix = "user."
	onlineUsersName   = "online-users"
)

// RoomChannel returns the channel for a room's events and presence.
func RoomChannel(roomID uuid.UUID) Channel {
	return Channel(roomChannelPrefix + roomID.String())
}

// UserChannel returns the private notification channel for a user.
func UserChannel(userID uuid.UUID) Channel {
	return Channel(userChannelPrefix + userID.String())
}

// OnlineUsersChannel returns the global presence channel.
func OnlineUsersChannel() Channel {
	return Channel(onlineUsersName)
}

// ParseChannel validates a client-supplied channel name.
func ParseChannel(name string) (Channel, error) {
	switch {
	case name == onlineUsersName:
		return Channel(name), nil
	case strings.HasPrefix(name, roomChannelPrefix):
		if _, err := uuid.Parse(strings.TrimPrefix(name, roomChannelPrefix)); err != nil {
			return "", apperrors.ErrInvalidChannel
		}
		return Channel(name), nil
	case strings.HasPrefix(name, userChannelPrefix):
		if _, err := uuid.Parse(strings.TrimPrefix(name, userChannelPrefix)); err != nil {
			return "", apperrors.ErrInvalidChannel
		}
		return Channel(name), nil
	default:
		return "", apperrors.ErrInvalidChannel
	}
}

// Kind classifies the channel.
func (c Channel) Kind() ChannelKind {
	switch {
	case strings.HasPrefix(string(c), userChannelPrefix):
		return ChannelUser
	case string(c) == onlineUsersName:
		return ChannelOnlineUsers
	default:
		return ChannelRoom
	}
}

// RoomID extracts the room ID from a room channel. The second return is
// false for non-room channels.
func (c Channel) RoomID() (uuid.UUID, bool) {
	if !strings.HasPrefix(string(c), roomChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(string(c), roomChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UserID extracts the user ID from a user channel. The second return is
// false for non-user channels.
func (c Channel) UserID() (uuid.UUID, bool) {
	if !strings.HasPrefix(string(c), userChannelPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(string(c), userChannelPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c Channel) String() string {
	return string(c)
}
