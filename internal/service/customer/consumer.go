package customer

import (
	"context"
	"encoding/json"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/pkg/logger"
)

// Consumer drains the customer and order channels, funneling each event
// through the service's direct write path. Failures are logged and the event
// is dropped; the bus is fire-and-forget by contract.
type Consumer struct {
	svc *Service
}

// NewConsumer builds a consumer over the given service.
func NewConsumer(svc *Service) *Consumer {
	return &Consumer{svc: svc}
}

// Attach subscribes the consumer to its channels on the given bus.
func (c *Consumer) Attach(b bus.Bus) {
	b.Subscribe(bus.ChannelCustomerCreate, c.handleCreate)
	b.Subscribe(bus.ChannelCustomerUpdate, c.handleUpdate)
	b.Subscribe(bus.ChannelOrderCreate, c.handleOrder)
}

func (c *Consumer) handleCreate(ctx context.Context, payload []byte) {
	var in CreateInput
	if err := json.Unmarshal(payload, &in); err != nil {
		logf("dropping malformed customer:create payload: %v", err)
		return
	}
	cust, err := c.svc.Create(ctx, in)
	if err != nil {
		logf("persisting customer %s failed: %v", logger.RedactEmail(in.Email), err)
		return
	}
	logf("customer %d created for %s", cust.ID, logger.RedactEmail(cust.Email))
}

func (c *Consumer) handleUpdate(ctx context.Context, payload []byte) {
	var ev updateEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		logf("dropping malformed customer:update payload: %v", err)
		return
	}
	if _, err := c.svc.Update(ctx, ev.ID, ev.Fields); err != nil {
		logf("updating customer %d failed: %v", ev.ID, err)
		return
	}
	logf("customer %d updated", ev.ID)
}

func (c *Consumer) handleOrder(ctx context.Context, payload []byte) {
	var in OrderInput
	if err := json.Unmarshal(payload, &in); err != nil {
		logf("dropping malformed order:create payload: %v", err)
		return
	}
	o, err := c.svc.CreateOrder(ctx, in)
	if err != nil {
		logf("persisting order for customer %d failed: %v", in.CustomerID, err)
		return
	}
	logf("order %d recorded for customer %d", o.ID, o.CustomerID)
}
