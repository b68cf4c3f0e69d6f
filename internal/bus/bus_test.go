package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (c *capture) handler(_ context.Context, payload []byte) {
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()
}

func (c *capture) waitFor(t *testing.T, n int) [][]byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.payloads)
		c.mu.Unlock()
		if got >= n {
			c.mu.Lock()
			defer c.mu.Unlock()
			return append([][]byte(nil), c.payloads...)
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func TestMemoryBusOrdering(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	var cap capture
	b.Subscribe("orders", cap.handler)

	for i := 0; i < 20; i++ {
		require.NoError(t, b.Publish(context.Background(), "orders", map[string]int{"seq": i}))
	}

	got := cap.waitFor(t, 20)
	for i, payload := range got {
		var m map[string]int
		require.NoError(t, json.Unmarshal(payload, &m))
		assert.Equal(t, i, m["seq"], "same-channel order must be preserved")
	}
}

func TestMemoryBusFanout(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	var a, c capture
	b.Subscribe("events", a.handler)
	b.Subscribe("events", c.handler)

	require.NoError(t, b.Publish(context.Background(), "events", "hello"))

	a.waitFor(t, 1)
	c.waitFor(t, 1)
}

func TestMemoryBusPublishAfterClose(t *testing.T) {
	b := NewMemoryBus()
	require.NoError(t, b.Close())
	assert.Error(t, b.Publish(context.Background(), "x", "y"))
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	b := NewRedisBus(client)
	defer b.Close()

	var cap capture
	b.Subscribe(ChannelDeliveryReceipt, cap.handler)

	// Give the subscription goroutine a beat to attach before publishing;
	// pub/sub drops messages with no subscriber.
	time.Sleep(50 * time.Millisecond)

	payload := map[string]any{"logId": 12, "status": "delivered"}
	require.NoError(t, b.Publish(context.Background(), ChannelDeliveryReceipt, payload))

	got := cap.waitFor(t, 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(got[0], &m))
	assert.Equal(t, "delivered", m["status"])
}
