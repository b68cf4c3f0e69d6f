package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryBus is a single-process Bus for development and tests. Each channel
// has one dispatch goroutine draining a buffered queue, so same-channel
// ordering holds while publishers never block on subscriber work.
type MemoryBus struct {
	mu       sync.Mutex
	channels map[string]*memChannel
	closed   bool
}

type memChannel struct {
	queue    chan []byte
	mu       sync.RWMutex
	handlers []Handler
}

const memQueueDepth = 256

// NewMemoryBus creates an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{channels: make(map[string]*memChannel)}
}

func (b *MemoryBus) channel(name string) *memChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[name]
	if !ok {
		ch = &memChannel{queue: make(chan []byte, memQueueDepth)}
		b.channels[name] = ch
		go ch.dispatch()
	}
	return ch
}

func (ch *memChannel) dispatch() {
	for payload := range ch.queue {
		ch.mu.RLock()
		handlers := ch.handlers
		ch.mu.RUnlock()
		for _, h := range handlers {
			h(context.Background(), payload)
		}
	}
}

// Publish marshals the payload and enqueues it for the channel's dispatcher.
func (b *MemoryBus) Publish(_ context.Context, channel string, payload any) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}
	b.channel(channel).queue <- data
	return nil
}

// Subscribe registers a handler. Messages published before the first
// subscriber are dropped, matching broker pub/sub semantics.
func (b *MemoryBus) Subscribe(channel string, h Handler) {
	ch := b.channel(channel)
	ch.mu.Lock()
	ch.handlers = append(ch.handlers, h)
	ch.mu.Unlock()
}

// Close stops all channel dispatchers. Publish after Close returns an error.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, ch := range b.channels {
		close(ch.queue)
	}
	return nil
}
