// Package segment implements segment management: saving named audience
// definitions, previewing who they match, and snapshotting audience size at
// creation time.
package segment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	engine "github.com/ignite/crm-engine/internal/segment"
)

// CreateInput carries the fields accepted when saving a segment.
type CreateInput struct {
	Name  string           `json:"name"`
	Rules domain.RuleGroup `json:"rules"`
}

// Preview is the result of evaluating a rule tree without saving anything.
type Preview struct {
	AudienceSize int               `json:"audienceSize"`
	Customers    []domain.Customer `json:"customers"`
}

// Service implements segment operations on top of a Repository and the rule
// evaluator.
type Service struct {
	repo      Repository
	customers CustomerLister
	eval      *engine.Evaluator
}

// NewService wires a segment service.
func NewService(repo Repository, customers CustomerLister, eval *engine.Evaluator) *Service {
	return &Service{repo: repo, customers: customers, eval: eval}
}

// Create validates the rule tree, freezes an audience-size snapshot against
// the current customer base, and persists the segment. The snapshot is
// informational; campaign sends re-evaluate the live audience.
func (s *Service) Create(ctx context.Context, createdByID int64, in CreateInput) (*domain.Segment, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := in.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	all, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing customers for snapshot: %w", err)
	}

	seg := &domain.Segment{
		Name:         strings.TrimSpace(in.Name),
		Rules:        in.Rules,
		CreatedByID:  createdByID,
		AudienceSize: len(s.eval.Audience(all, &in.Rules)),
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.repo.CreateSegment(ctx, seg)
	if err != nil {
		return nil, fmt.Errorf("creating segment: %w", err)
	}
	seg.ID = id
	return seg, nil
}

// PreviewRules evaluates a rule tree against the current customer base
// without persisting anything. Used by the segment builder's live audience
// counter.
func (s *Service) PreviewRules(ctx context.Context, rules domain.RuleGroup) (*Preview, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	all, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing customers for preview: %w", err)
	}
	matched := s.eval.Audience(all, &rules)
	return &Preview{AudienceSize: len(matched), Customers: matched}, nil
}

// Get returns a segment, enforcing that the requester created it.
func (s *Service) Get(ctx context.Context, userID, id int64) (*domain.Segment, error) {
	seg, err := s.repo.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}
	if seg.CreatedByID != userID {
		return nil, ErrForbidden
	}
	return seg, nil
}

// List returns the requester's segments.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Segment, error) {
	return s.repo.ListSegmentsByCreator(ctx, userID)
}

// Audience resolves the live audience for a stored segment. Campaign
// dispatch calls this at send time so membership reflects the customer base
// as of that moment, not the creation-time snapshot.
func (s *Service) Audience(ctx context.Context, seg *domain.Segment) ([]domain.Customer, error) {
	all, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing customers for audience: %w", err)
	}
	return s.eval.Audience(all, &seg.Rules), nil
}
