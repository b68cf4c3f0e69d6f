// Package transmit sends personalized campaign messages to a delivery
// vendor and reports a per-message outcome.
//
// The contract is deliberately narrow: one outcome per message, delivered or
// failed, nothing else. The dispatcher treats failed outcomes as data, not
// errors; only a transport-level error aborts a send.
package transmit

import "context"

// OutcomeStatus is the vendor's verdict for a single message.
type OutcomeStatus string

const (
	OutcomeDelivered OutcomeStatus = "delivered"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Message is one personalized message bound for one recipient.
type Message struct {
	LogID     int64
	Recipient string
	Subject   string
	Body      string
}

// Outcome is the delivery verdict for one message.
type Outcome struct {
	LogID         int64
	Status        OutcomeStatus
	FailureReason string
}

// Transmitter sends a batch of messages and returns exactly one outcome per
// message, in input order. The error return is for transport-level failures
// only (the whole batch could not be attempted); individual rejections are
// failed outcomes.
type Transmitter interface {
	Send(ctx context.Context, msgs []Message) ([]Outcome, error)
}
