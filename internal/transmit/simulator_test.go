package transmit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batch(n int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		msgs[i] = Message{LogID: int64(i + 1), Recipient: "x@example.com", Body: "hi"}
	}
	return msgs
}

func TestSimulatorOneOutcomePerMessage(t *testing.T) {
	s := NewSimulator(0.9, 42)

	out, err := s.Send(context.Background(), batch(50))
	require.NoError(t, err)
	require.Len(t, out, 50)
	for i, o := range out {
		assert.Equal(t, int64(i+1), o.LogID, "outcomes keep input order")
		assert.Contains(t, []OutcomeStatus{OutcomeDelivered, OutcomeFailed}, o.Status)
		if o.Status == OutcomeFailed {
			assert.NotEmpty(t, o.FailureReason)
		} else {
			assert.Empty(t, o.FailureReason)
		}
	}
}

func TestSimulatorExtremes(t *testing.T) {
	always := NewSimulator(1.0, 1)
	out, err := always.Send(context.Background(), batch(20))
	require.NoError(t, err)
	for _, o := range out {
		assert.Equal(t, OutcomeDelivered, o.Status)
	}

	never := NewSimulator(0.0, 1)
	out, err = never.Send(context.Background(), batch(20))
	require.NoError(t, err)
	for _, o := range out {
		assert.Equal(t, OutcomeFailed, o.Status)
	}
}

func TestSimulatorDeterministicForSeed(t *testing.T) {
	a := NewSimulator(0.5, 7)
	b := NewSimulator(0.5, 7)

	outA, _ := a.Send(context.Background(), batch(30))
	outB, _ := b.Send(context.Background(), batch(30))
	assert.Equal(t, outA, outB)
}

func TestSimulatorClampsRate(t *testing.T) {
	s := NewSimulator(3.5, 1)
	out, err := s.Send(context.Background(), batch(5))
	require.NoError(t, err)
	for _, o := range out {
		assert.Equal(t, OutcomeDelivered, o.Status)
	}
}
