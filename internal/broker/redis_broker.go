package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/studyquiz/chat-service/internal/domain"
	"github.com/studyquiz/chat-service/pkg/log"
)

// RedisBroker implements Broker on a single named Redis pub/sub
// channel.
type RedisBroker struct {
	client        *redis.Client
	channel       string
	subscriptions []*redis.PubSub
	mu            sync.Mutex
}

func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	return &RedisBroker{
		client:  client,
		channel: channel,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, msg *domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, handler Handler) error {
	pubsub := b.client.Subscribe(ctx, b.channel)

	// Force the subscription to be established before returning, so a
	// publish issued right after Subscribe cannot be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.mu.Lock()
	b.subscriptions = append(b.subscriptions, pubsub)
	b.mu.Unlock()

	go b.pump(ctx, pubsub, handler)

	return nil
}

func (b *RedisBroker) pump(ctx context.Context, pubsub *redis.PubSub, handler Handler) {
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-ch:
			if !ok {
				return
			}

			var msg domain.ChatMessage
			if err := json.Unmarshal([]byte(delivery.Payload), &msg); err != nil {
				l := log.L()
				l.Warn().Err(err).Msg("dropping undecodable broker delivery")
				continue
			}

			handler(ctx, &msg)
		}
	}
}

func (b *RedisBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, pubsub := range b.subscriptions {
		pubsub.Close()
	}
	b.subscriptions = nil

	return nil
}
