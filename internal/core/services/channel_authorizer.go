package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
	apperrors "github.com/parleyhq/chat-backend/internal/core/errors"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// ChannelAuthorizer decides, at subscribe time, whether an authenticated
// user may attach to a channel. Decisions are snapshots of the membership
// registry: approval is not revisited for the life of the subscription.
type ChannelAuthorizer struct {
	membership ports.MembershipService
}

var _ ports.ChannelAuthorizer = (*ChannelAuthorizer)(nil)

// NewChannelAuthorizer creates a new channel authorizer.
func NewChannelAuthorizer(membership ports.MembershipService) *ChannelAuthorizer {
	return &ChannelAuthorizer{membership: membership}
}

// CanSubscribe reports whether the user may subscribe to the channel.
//
// A false return carries no detail: a missing room and a membership miss are
// indistinguishable so a denied subscribe does not leak room existence. A
// non-nil error means the registry was unreachable and the caller should
// report the service unavailable rather than deny.
func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID uuid.UUID, channel domain.Channel) (bool, error) {
	switch channel.Kind() {
	case domain.ChannelUser:
		ownerID, ok := channel.UserID()
		return ok && ownerID == userID, nil

	case domain.ChannelOnlineUsers:
		// Open to every authenticated identity.
		return true, nil

	default:
		roomID, ok := channel.RoomID()
		if !ok {
			return false, nil
		}

		isPublic, err := a.membership.IsPublic(ctx, roomID)
		if err != nil {
			if errors.Is(err, apperrors.ErrRoomNotFound) {
				return false, nil
			}
			return false, err
		}
		if isPublic {
			return true, nil
		}

		return a.membership.IsMember(ctx, roomID, userID)
	}
}
