// Package delivery maintains the per-message delivery ledger and the
// campaign aggregate counters derived from it.
//
// Outcomes arrive asynchronously and possibly more than once. The ledger
// transition is the idempotence gate: a log already in a terminal state
// absorbs later outcomes without effect, so counters are incremented exactly
// once per message regardless of receipt duplication or ordering.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
)

// Sentinel errors for the delivery service layer.
var (
	ErrNotFound   = errors.New("communication log not found")
	ErrValidation = errors.New("invalid delivery receipt")
)

// Repository defines the data access contract for the delivery ledger.
type Repository interface {
	// GetLog returns one ledger row, or ErrNotFound.
	GetLog(ctx context.Context, id int64) (*domain.CommunicationLog, error)

	// TransitionLog moves a log to a terminal status. It reports false when
	// the log is already terminal; the row is left untouched in that case.
	TransitionLog(ctx context.Context, id int64, status domain.LogStatus, deliveredAt *time.Time, reason string) (bool, error)

	// IncrementCounters atomically adds to a campaign's sent and failed
	// counters.
	IncrementCounters(ctx context.Context, campaignID int64, delivered, failed int) error

	// ListLogsByCampaign returns a campaign's ledger rows in id order.
	ListLogsByCampaign(ctx context.Context, campaignID int64) ([]domain.CommunicationLog, error)
}

// Receipt is the wire shape of one delivery outcome.
type Receipt struct {
	LogID         int64  `json:"logId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

// Service applies delivery outcomes to the ledger and keeps campaign
// counters in sync with it.
type Service struct {
	repo Repository
}

// NewService wires a delivery service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func parseStatus(s string) (domain.LogStatus, error) {
	switch s {
	case string(domain.LogDelivered):
		return domain.LogDelivered, nil
	case string(domain.LogFailed):
		return domain.LogFailed, nil
	}
	return "", fmt.Errorf("%w: status %q is not a delivery outcome", ErrValidation, s)
}

// ApplyOutcome applies one receipt. It returns true when the receipt changed
// the ledger; a duplicate or late receipt for an already-terminal log returns
// false with no counter movement.
func (s *Service) ApplyOutcome(ctx context.Context, r Receipt) (bool, error) {
	status, err := parseStatus(r.Status)
	if err != nil {
		return false, err
	}

	logEntry, err := s.repo.GetLog(ctx, r.LogID)
	if err != nil {
		return false, err
	}

	var deliveredAt *time.Time
	if status == domain.LogDelivered {
		now := time.Now().UTC()
		deliveredAt = &now
	}

	applied, err := s.repo.TransitionLog(ctx, r.LogID, status, deliveredAt, r.FailureReason)
	if err != nil || !applied {
		return false, err
	}

	delivered, failed := 0, 0
	if status == domain.LogDelivered {
		delivered = 1
	} else {
		failed = 1
	}
	if err := s.repo.IncrementCounters(ctx, logEntry.CampaignID, delivered, failed); err != nil {
		return true, fmt.Errorf("incrementing counters for campaign %d: %w", logEntry.CampaignID, err)
	}
	return true, nil
}

// ApplyOutcomesBatch applies a batch of receipts, coalescing counter
// increments to one update per campaign. Invalid or unknown receipts are
// skipped and reported in the result rather than failing the batch.
func (s *Service) ApplyOutcomesBatch(ctx context.Context, receipts []Receipt) (applied, skipped int, err error) {
	type delta struct{ delivered, failed int }
	deltas := map[int64]*delta{}

	for _, r := range receipts {
		status, perr := parseStatus(r.Status)
		if perr != nil {
			skipped++
			continue
		}

		logEntry, gerr := s.repo.GetLog(ctx, r.LogID)
		if gerr != nil {
			if errors.Is(gerr, ErrNotFound) {
				skipped++
				continue
			}
			return applied, skipped, gerr
		}

		var deliveredAt *time.Time
		if status == domain.LogDelivered {
			now := time.Now().UTC()
			deliveredAt = &now
		}

		ok, terr := s.repo.TransitionLog(ctx, r.LogID, status, deliveredAt, r.FailureReason)
		if terr != nil {
			return applied, skipped, terr
		}
		if !ok {
			skipped++
			continue
		}

		d, found := deltas[logEntry.CampaignID]
		if !found {
			d = &delta{}
			deltas[logEntry.CampaignID] = d
		}
		if status == domain.LogDelivered {
			d.delivered++
		} else {
			d.failed++
		}
		applied++
	}

	for campaignID, d := range deltas {
		if ierr := s.repo.IncrementCounters(ctx, campaignID, d.delivered, d.failed); ierr != nil {
			return applied, skipped, fmt.Errorf("incrementing counters for campaign %d: %w", campaignID, ierr)
		}
	}
	return applied, skipped, nil
}

// Logs returns a campaign's delivery ledger.
func (s *Service) Logs(ctx context.Context, campaignID int64) ([]domain.CommunicationLog, error) {
	return s.repo.ListLogsByCampaign(ctx, campaignID)
}

// Consumer drains the delivery-receipt channel. A payload may be a single
// receipt or an array of them; both shapes funnel into the batch path.
type Consumer struct {
	svc *Service
}

// NewConsumer builds a consumer over the given service.
func NewConsumer(svc *Service) *Consumer {
	return &Consumer{svc: svc}
}

// Attach subscribes the consumer to the delivery-receipt channel.
func (c *Consumer) Attach(b bus.Bus) {
	b.Subscribe(bus.ChannelDeliveryReceipt, c.handle)
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var receipts []Receipt
	if err := json.Unmarshal(payload, &receipts); err != nil {
		var one Receipt
		if err := json.Unmarshal(payload, &one); err != nil {
			log.Printf("[DeliveryConsumer] dropping malformed receipt payload: %v", err)
			return
		}
		receipts = []Receipt{one}
	}

	applied, skipped, err := c.svc.ApplyOutcomesBatch(ctx, receipts)
	if err != nil {
		log.Printf("[DeliveryConsumer] applying %d receipts failed: %v", len(receipts), err)
		return
	}
	if skipped > 0 {
		log.Printf("[DeliveryConsumer] applied %d receipts, skipped %d", applied, skipped)
	}
}
