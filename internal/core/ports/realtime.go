package ports

import (
	"github.com/parleyhq/chat-backend/internal/core/domain"
)

// EventPublisher fans a domain event out to every live connection subscribed
// to the event's channel, skipping the event's originating socket. Delivery
// is best effort per connection: a failed write to one subscriber never
// fails the publish, and publishing to a channel with no subscribers is not
// an error. Fan-out is a post-commit side effect of the persistence write
// that produced the event, never transactional with it.
type EventPublisher interface {
	Publish(event domain.Event) error
}
