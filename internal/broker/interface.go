package broker

import (
	"context"

	"github.com/studyquiz/chat-service/internal/domain"
)

// Handler is invoked once per delivered message.
type Handler func(ctx context.Context, msg *domain.ChatMessage)

// Broker is the shared fan-out channel between gateway instances. Every
// subscribed instance receives every published message exactly once;
// nothing is retained for instances that were not subscribed at publish
// time.
type Broker interface {
	// Publish sends msg to all current subscribers, best effort.
	Publish(ctx context.Context, msg *domain.ChatMessage) error

	// Subscribe registers handler for every subsequent delivery until
	// ctx is cancelled.
	Subscribe(ctx context.Context, handler Handler) error

	Close() error
}
