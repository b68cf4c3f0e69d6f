package transmit

import (
	"context"
	"math/rand"
	"sync"
)

const simulatedFailureReason = "Failed to deliver message"

// Simulator is a stand-in vendor that delivers each message with a fixed
// probability. It never returns a transport error, which makes it useful for
// exercising the full dispatch pipeline without an external dependency.
type Simulator struct {
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator delivering with the given probability
// (clamped to [0,1]). Seed fixes the outcome sequence, which tests rely on;
// production callers pass a varying seed.
func NewSimulator(successRate float64, seed int64) *Simulator {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &Simulator{
		successRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Send rolls a delivery outcome per message.
func (s *Simulator) Send(_ context.Context, msgs []Message) ([]Outcome, error) {
	out := make([]Outcome, 0, len(msgs))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if s.rng.Float64() < s.successRate {
			out = append(out, Outcome{LogID: m.LogID, Status: OutcomeDelivered})
		} else {
			out = append(out, Outcome{LogID: m.LogID, Status: OutcomeFailed, FailureReason: simulatedFailureReason})
		}
	}
	return out, nil
}
