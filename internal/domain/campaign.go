package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignSent    CampaignStatus = "sent"
	CampaignFailed  CampaignStatus = "failed"
)

// Campaign pairs a message template with a segment and tracks the send
// lifecycle. Counters are owned by the delivery ledger: they are only
// mutated through per-campaign atomic increments as outcomes arrive.
type Campaign struct {
	ID           int64          `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	SegmentID    int64          `json:"segmentId" db:"segment_id"`
	Message      string         `json:"message" db:"message"`
	CreatedByID  int64          `json:"createdById" db:"created_by_id"`
	Status       CampaignStatus `json:"status" db:"status"`
	SentAt       *time.Time     `json:"sentAt,omitempty" db:"sent_at"`
	AudienceSize int            `json:"audienceSize" db:"audience_size"`
	SentCount    int            `json:"sentCount" db:"sent_count"`
	FailedCount  int            `json:"failedCount" db:"failed_count"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}

// LogStatus enumerates the delivery lifecycle of one message.
type LogStatus string

const (
	LogPending   LogStatus = "pending"
	LogSending   LogStatus = "sending"
	LogDelivered LogStatus = "delivered"
	LogFailed    LogStatus = "failed"
)

// Terminal reports whether the status is a final delivery outcome.
func (s LogStatus) Terminal() bool {
	return s == LogDelivered || s == LogFailed
}

// CommunicationLog is one row per (campaign, customer) pair: the personalized
// message and its delivery status. The ledger is the sole source of truth for
// campaign aggregate counters.
type CommunicationLog struct {
	ID            int64      `json:"id" db:"id"`
	CampaignID    int64      `json:"campaignId" db:"campaign_id"`
	CustomerID    int64      `json:"customerId" db:"customer_id"`
	Message       string     `json:"message" db:"message"`
	Status        LogStatus  `json:"status" db:"status"`
	SentAt        *time.Time `json:"sentAt,omitempty" db:"sent_at"`
	DeliveredAt   *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`
	FailureReason string     `json:"failureReason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}
