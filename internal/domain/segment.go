package domain

import "time"

// Segment is a named, persisted rule tree owned by its creator.
//
// AudienceSize is a point-in-time snapshot computed once when the segment is
// created. It is intentionally not refreshed as customer data changes;
// campaign dispatch always recomputes a live audience from the same rules.
type Segment struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Rules        RuleGroup `json:"rules" db:"rules"`
	CreatedByID  int64     `json:"createdById" db:"created_by_id"`
	AudienceSize int       `json:"audienceSize" db:"audience_size"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
