package segment

import (
	"context"

	"github.com/ignite/crm-engine/internal/domain"
)

// Repository defines the data access contract for segments.
type Repository interface {
	// CreateSegment inserts a segment and returns its id.
	CreateSegment(ctx context.Context, s *domain.Segment) (int64, error)

	// GetSegment returns a segment by id, or ErrNotFound.
	GetSegment(ctx context.Context, id int64) (*domain.Segment, error)

	// ListSegmentsByCreator returns the segments a user created, newest
	// first.
	ListSegmentsByCreator(ctx context.Context, createdByID int64) ([]domain.Segment, error)
}

// CustomerLister is the slice of the customer repository the segment service
// needs: the full customer base to evaluate rules against.
type CustomerLister interface {
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
}
