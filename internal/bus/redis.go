package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by Redis pub/sub. Each subscribed channel gets a
// dedicated receive goroutine; Redis guarantees per-channel publish order,
// which is the only ordering this bus promises.
type RedisBus struct {
	client *redis.Client

	mu     sync.Mutex
	subs   []*redis.PubSub
	cancel context.CancelFunc
	ctx    context.Context
}

// NewRedisBus creates a Bus on top of an existing Redis client.
func NewRedisBus(client *redis.Client) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{client: client, ctx: ctx, cancel: cancel}
}

// Publish marshals the payload and publishes it on the channel.
func (b *RedisBus) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe opens a Redis subscription for the channel and pumps messages to
// the handler until the bus is closed.
func (b *RedisBus) Subscribe(channel string, h Handler) {
	sub := b.client.Subscribe(b.ctx, channel)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				h(b.ctx, []byte(msg.Payload))
			}
		}
	}()
	log.Printf("[bus] subscribed to %s", channel)
}

// Close cancels all subscriptions. The underlying Redis client is owned by
// the caller and stays open.
func (b *RedisBus) Close() error {
	b.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			log.Printf("[bus] closing subscription: %v", err)
		}
	}
	b.subs = nil
	return nil
}
