package campaign

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/message"
	"github.com/ignite/crm-engine/internal/service/delivery"
	"github.com/ignite/crm-engine/internal/transmit"
)

// DispatchOptions tune the batch loop.
type DispatchOptions struct {
	// BatchSize is how many messages go to the transmitter per call.
	BatchSize int
	// BatchDelay is the pause between consecutive batches.
	BatchDelay time.Duration
}

// DefaultDispatchOptions returns the production batch shape.
func DefaultDispatchOptions() DispatchOptions {
	return DispatchOptions{BatchSize: 10, BatchDelay: 100 * time.Millisecond}
}

// Dispatcher runs the asynchronous half of a campaign send: audience
// resolution, ledger creation, batched transmission, and the final lifecycle
// transition. Delivery outcomes are not applied here; each batch's outcomes
// are published as receipts and the delivery consumer settles the ledger.
type Dispatcher struct {
	repo        Repository
	segments    Segments
	transmitter transmit.Transmitter
	bus         bus.Bus
	opts        DispatchOptions
	tpl         *message.Template

	wg sync.WaitGroup
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(repo Repository, segments Segments, t transmit.Transmitter, b bus.Bus, opts DispatchOptions) *Dispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultDispatchOptions().BatchSize
	}
	return &Dispatcher{repo: repo, segments: segments, transmitter: t, bus: b, opts: opts, tpl: message.NewTemplate()}
}

// Launch starts the dispatch run on its own goroutine. The campaign must
// already be claimed (status sending). The run carries its own context: the
// HTTP request that triggered the send is long gone by the time batches go
// out.
func (d *Dispatcher) Launch(c *domain.Campaign, seg *domain.Segment) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(context.Background(), c, seg)
	}()
}

// Wait blocks until all launched runs finish. Used by shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, c *domain.Campaign, seg *domain.Segment) {
	if err := d.dispatch(ctx, c, seg); err != nil {
		log.Printf("[Dispatcher] campaign %d failed: %v", c.ID, err)
		if _, ferr := d.repo.UpdateStatusIf(ctx, c.ID, domain.CampaignSending, domain.CampaignFailed, nil); ferr != nil {
			log.Printf("[Dispatcher] marking campaign %d failed: %v", c.ID, ferr)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, c *domain.Campaign, seg *domain.Segment) error {
	audience, err := d.segments.Audience(ctx, seg)
	if err != nil {
		return fmt.Errorf("resolving audience: %w", err)
	}
	if err := d.repo.SetAudienceSize(ctx, c.ID, len(audience)); err != nil {
		return fmt.Errorf("recording audience size: %w", err)
	}
	log.Printf("[Dispatcher] campaign %d: dispatching to %d customers", c.ID, len(audience))

	now := time.Now().UTC()
	rich := message.IsRich(c.Message)
	logs := make([]domain.CommunicationLog, 0, len(audience))
	for i := range audience {
		logs = append(logs, domain.CommunicationLog{
			CampaignID: c.ID,
			CustomerID: audience[i].ID,
			Message:    d.personalize(c.Message, rich, &audience[i]),
			Status:     domain.LogPending,
			CreatedAt:  now,
		})
	}
	logs, err = d.repo.CreateLogs(ctx, logs)
	if err != nil {
		return fmt.Errorf("creating communication logs: %w", err)
	}

	for start := 0; start < len(logs); start += d.opts.BatchSize {
		if start > 0 && d.opts.BatchDelay > 0 {
			time.Sleep(d.opts.BatchDelay)
		}
		end := start + d.opts.BatchSize
		if end > len(logs) {
			end = len(logs)
		}
		if err := d.sendBatch(ctx, logs[start:end], audience[start:end]); err != nil {
			return err
		}
	}

	sentAt := time.Now().UTC()
	done, err := d.repo.UpdateStatusIf(ctx, c.ID, domain.CampaignSending, domain.CampaignSent, &sentAt)
	if err != nil {
		return fmt.Errorf("marking campaign sent: %w", err)
	}
	if !done {
		log.Printf("[Dispatcher] campaign %d left sending state mid-run", c.ID)
	}
	return nil
}

// personalize picks the message dialect: Liquid for templates using tags or
// filters, the plain placeholder substitution otherwise. A Liquid render
// error falls back to the plain dialect so one bad template never aborts a
// run.
func (d *Dispatcher) personalize(src string, rich bool, cust *domain.Customer) string {
	if rich {
		out, err := d.tpl.Render(src, cust)
		if err == nil {
			return out
		}
		log.Printf("[Dispatcher] liquid render failed, using plain dialect: %v", err)
	}
	return message.Personalize(src, cust)
}

func (d *Dispatcher) sendBatch(ctx context.Context, logs []domain.CommunicationLog, audience []domain.Customer) error {
	sentAt := time.Now().UTC()
	ids := make([]int64, len(logs))
	msgs := make([]transmit.Message, len(logs))
	for i := range logs {
		ids[i] = logs[i].ID
		msgs[i] = transmit.Message{
			LogID:     logs[i].ID,
			Recipient: audience[i].Email,
			Subject:   "A message for you",
			Body:      logs[i].Message,
		}
	}
	if err := d.repo.MarkLogsSending(ctx, ids, sentAt); err != nil {
		return fmt.Errorf("marking batch sending: %w", err)
	}

	outcomes, err := d.transmitter.Send(ctx, msgs)
	if err != nil {
		return fmt.Errorf("transmitting batch: %w", err)
	}

	receipts := make([]delivery.Receipt, len(outcomes))
	for i, o := range outcomes {
		receipts[i] = delivery.Receipt{
			LogID:         o.LogID,
			Status:        string(o.Status),
			FailureReason: o.FailureReason,
		}
	}
	if err := d.bus.Publish(ctx, bus.ChannelDeliveryReceipt, receipts); err != nil {
		return fmt.Errorf("publishing receipts: %w", err)
	}
	return nil
}
