// Package campaign implements the campaign lifecycle: creation against a
// segment, the asynchronous dispatch pipeline, and aggregate stats.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	segmentsvc "github.com/ignite/crm-engine/internal/service/segment"
)

// CreateInput carries the fields accepted when creating a campaign.
type CreateInput struct {
	Name      string `json:"name"`
	SegmentID int64  `json:"segmentId"`
	Message   string `json:"message"`
}

// Service implements campaign operations. Send hands off to the dispatcher
// after the lifecycle gate; everything else is synchronous.
type Service struct {
	repo       Repository
	segments   Segments
	dispatcher *Dispatcher
}

// NewService wires a campaign service.
func NewService(repo Repository, segments Segments, dispatcher *Dispatcher) *Service {
	return &Service{repo: repo, segments: segments, dispatcher: dispatcher}
}

// Create validates the input and persists a draft campaign. The referenced
// segment must exist and belong to the creator; its snapshot size seeds the
// campaign's audience size until dispatch recomputes it.
func (s *Service) Create(ctx context.Context, createdByID int64, in CreateInput) (*domain.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	seg, err := s.segments.Get(ctx, createdByID, in.SegmentID)
	if err != nil {
		if errors.Is(err, segmentsvc.ErrNotFound) || errors.Is(err, segmentsvc.ErrForbidden) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("resolving segment %d: %w", in.SegmentID, err)
	}

	c := &domain.Campaign{
		Name:         strings.TrimSpace(in.Name),
		SegmentID:    seg.ID,
		Message:      in.Message,
		CreatedByID:  createdByID,
		Status:       domain.CampaignDraft,
		AudienceSize: seg.AudienceSize,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.repo.CreateCampaign(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}
	c.ID = id
	return c, nil
}

// Get returns a campaign, enforcing that the requester created it.
func (s *Service) Get(ctx context.Context, userID, id int64) (*domain.Campaign, error) {
	c, err := s.repo.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CreatedByID != userID {
		return nil, ErrForbidden
	}
	return c, nil
}

// List returns the requester's campaigns.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Campaign, error) {
	return s.repo.ListCampaignsByCreator(ctx, userID)
}

// Send starts the dispatch pipeline for a draft campaign and returns as soon
// as the campaign is claimed. The claim is a compare-and-set from draft to
// sending, so two concurrent Send calls cannot both dispatch: the loser gets
// ErrAlreadySent.
//
// The segment is resolved before the claim; a missing segment leaves the
// campaign untouched in draft.
func (s *Service) Send(ctx context.Context, userID, id int64) (*domain.Campaign, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.IsTerminal() || c.Status == domain.CampaignSending {
		return nil, ErrAlreadySent
	}

	seg, err := s.segments.Get(ctx, userID, c.SegmentID)
	if err != nil {
		if errors.Is(err, segmentsvc.ErrNotFound) || errors.Is(err, segmentsvc.ErrForbidden) {
			return nil, ErrSegmentNotFound
		}
		return nil, fmt.Errorf("resolving segment %d: %w", c.SegmentID, err)
	}

	claimed, err := s.repo.UpdateStatusIf(ctx, c.ID, domain.CampaignDraft, domain.CampaignSending, nil)
	if err != nil {
		return nil, fmt.Errorf("claiming campaign %d: %w", c.ID, err)
	}
	if !claimed {
		return nil, ErrAlreadySent
	}
	c.Status = domain.CampaignSending

	s.dispatcher.Launch(c, seg)
	return c, nil
}
