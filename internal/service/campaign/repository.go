package campaign

import (
	"context"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
)

// Repository defines the data access contract for campaigns and the ledger
// rows the dispatcher creates.
type Repository interface {
	// CreateCampaign inserts a campaign and returns its id.
	CreateCampaign(ctx context.Context, c *domain.Campaign) (int64, error)

	// GetCampaign returns a campaign by id, or ErrNotFound.
	GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error)

	// ListCampaignsByCreator returns the campaigns a user created, newest
	// first.
	ListCampaignsByCreator(ctx context.Context, createdByID int64) ([]domain.Campaign, error)

	// UpdateStatusIf is the compare-and-set guarding the campaign lifecycle:
	// the status moves from "from" to "to" only if it still equals "from".
	// It reports whether the transition happened. A non-nil sentAt is
	// recorded alongside the transition.
	UpdateStatusIf(ctx context.Context, id int64, from, to domain.CampaignStatus, sentAt *time.Time) (bool, error)

	// SetAudienceSize records the resolved audience size for a campaign.
	SetAudienceSize(ctx context.Context, id int64, size int) error

	// CreateLogs inserts ledger rows for a campaign's audience and returns
	// them with ids assigned, preserving input order.
	CreateLogs(ctx context.Context, logs []domain.CommunicationLog) ([]domain.CommunicationLog, error)

	// MarkLogsSending moves the given ledger rows from pending to sending
	// and stamps their send time.
	MarkLogsSending(ctx context.Context, ids []int64, sentAt time.Time) error
}

// Segments is the slice of the segment service the campaign service needs:
// ownership-checked reads and live audience resolution.
type Segments interface {
	Get(ctx context.Context, userID, id int64) (*domain.Segment, error)
	Audience(ctx context.Context, seg *domain.Segment) ([]domain.Customer, error)
}
