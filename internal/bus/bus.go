// Package bus provides the publish/subscribe backbone that decouples the
// HTTP write path from persistence and delivery-receipt handling.
//
// Channel names and payload shapes are the stable contract: the in-process
// bus and the Redis bus are interchangeable without touching publisher or
// subscriber logic. Ordering is preserved within a channel; no guarantee is
// made across channels.
package bus

import "context"

// Well-known channels.
const (
	ChannelCustomerCreate  = "customer:create"
	ChannelCustomerUpdate  = "customer:update"
	ChannelOrderCreate     = "order:create"
	ChannelDeliveryReceipt = "message:deliveryReceipt"
)

// Handler processes one message from a channel. Handlers run on the bus's
// own goroutines, never on the publisher's call path; a handler error is the
// handler's problem to log.
type Handler func(ctx context.Context, payload []byte)

// Bus is a fire-and-forget publish/subscribe transport.
type Bus interface {
	// Publish serializes the payload and delivers it to current subscribers
	// of the channel. It returns once the message is handed to the
	// transport, not once subscribers have processed it.
	Publish(ctx context.Context, channel string, payload any) error

	// Subscribe registers a handler for a channel. All handlers of a channel
	// see every message, in publish order.
	Subscribe(channel string, h Handler)

	// Close stops delivery and releases transport resources.
	Close() error
}
