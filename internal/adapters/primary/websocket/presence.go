package websocket

import (
	"sync"

	"github.com/google/uuid"

	"github.com/parleyhq/chat-backend/internal/core/domain"
)

// presenceTracker records which users have live connections on each channel.
// A user is present on a channel while at least one of their connections is
// subscribed to it; per-connection counting is what makes the multi-device
// join/leave signals fire exactly once per user.
//
// State lives only in memory. A process restart empties it, and reconnecting
// clients rebuild it by resubscribing.
type presenceTracker struct {
	mu sync.RWMutex

	// channels maps channel -> user -> the user's subscribed socket IDs.
	channels map[domain.Channel]map[uuid.UUID]map[string]bool

	// snapshots caches the identity attached to presence events, keyed by
	// user. Updated on every attach so it never outlives the last
	// connection by more than a detach.
	snapshots map[uuid.UUID]domain.UserSnapshot
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{
		channels:  make(map[domain.Channel]map[uuid.UUID]map[string]bool),
		snapshots: make(map[uuid.UUID]domain.UserSnapshot),
	}
}

// attach records a connection on a channel. The boolean reports whether this
// is the user's first connection there, i.e. whether the user just became
// present.
func (p *presenceTracker) attach(channel domain.Channel, user domain.UserSnapshot, userID uuid.UUID, socketID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.channels[channel]
	if !ok {
		users = make(map[uuid.UUID]map[string]bool)
		p.channels[channel] = users
	}

	sockets, ok := users[userID]
	if !ok {
		sockets = make(map[string]bool)
		users[userID] = sockets
	}

	joined := len(sockets) == 0
	sockets[socketID] = true
	p.snapshots[userID] = user

	return joined
}

// detach removes a connection from a channel. The boolean reports whether
// this was the user's last connection there, i.e. whether the user just
// became absent. Detaching an unknown connection is a no-op.
func (p *presenceTracker) detach(channel domain.Channel, userID uuid.UUID, socketID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.detachLocked(channel, userID, socketID)
}

func (p *presenceTracker) detachLocked(channel domain.Channel, userID uuid.UUID, socketID string) bool {
	users, ok := p.channels[channel]
	if !ok {
		return false
	}
	sockets, ok := users[userID]
	if !ok || !sockets[socketID] {
		return false
	}

	delete(sockets, socketID)
	if len(sockets) > 0 {
		return false
	}

	delete(users, userID)
	if len(users) == 0 {
		delete(p.channels, channel)
	}
	p.cleanupSnapshotLocked(userID)
	return true
}

// detachAll removes a connection from every channel it is attached to,
// returning the channels where the user just became absent.
func (p *presenceTracker) detachAll(userID uuid.UUID, socketID string) []domain.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()

	var left []domain.Channel
	for channel := range p.channels {
		if p.detachLocked(channel, userID, socketID) {
			left = append(left, channel)
		}
	}
	return left
}

// membersOf returns a snapshot of the users currently present on a channel.
func (p *presenceTracker) membersOf(channel domain.Channel) []domain.UserSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	users := p.channels[channel]
	members := make([]domain.UserSnapshot, 0, len(users))
	for userID := range users {
		members = append(members, p.snapshots[userID])
	}
	return members
}

// cleanupSnapshotLocked drops the cached identity once the user is present
// on no channel at all.
func (p *presenceTracker) cleanupSnapshotLocked(userID uuid.UUID) {
	for _, users := range p.channels {
		if _, ok := users[userID]; ok {
			return
		}
	}
	delete(p.snapshots, userID)
}
