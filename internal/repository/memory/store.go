// Package memory implements the service repositories in process memory.
// It backs local development and the default zero-dependency deployment;
// semantics mirror the postgres implementations, including the
// compare-and-set status transitions.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/campaign"
	"github.com/ignite/crm-engine/internal/service/customer"
	"github.com/ignite/crm-engine/internal/service/delivery"
	"github.com/ignite/crm-engine/internal/service/segment"
)

// Store holds all entities behind one mutex. Contention is not a concern at
// the scale this backend serves; correctness of the CAS paths is.
type Store struct {
	mu sync.Mutex

	customers map[int64]domain.Customer
	orders    map[int64]domain.Order
	segments  map[int64]domain.Segment
	campaigns map[int64]domain.Campaign
	logs      map[int64]domain.CommunicationLog

	nextCustomer int64
	nextOrder    int64
	nextSegment  int64
	nextCampaign int64
	nextLog      int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		customers:    map[int64]domain.Customer{},
		orders:       map[int64]domain.Order{},
		segments:     map[int64]domain.Segment{},
		campaigns:    map[int64]domain.Campaign{},
		logs:         map[int64]domain.CommunicationLog{},
		nextCustomer: 1,
		nextOrder:    1,
		nextSegment:  1,
		nextCampaign: 1,
		nextLog:      1,
	}
}

// --- customer.Repository ---

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCustomerByEmail(_ context.Context, email string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			cc := c
			return &cc, nil
		}
	}
	return nil, customer.ErrNotFound
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCustomer(_ context.Context, c *domain.Customer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextCustomer
	s.nextCustomer++
	cc := *c
	cc.ID = id
	s.customers[id] = cc
	return id, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id int64, u customer.UpdateFields) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	s.customers[id] = c
	return &c, nil
}

func (s *Store) CreateOrder(_ context.Context, o *domain.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[o.CustomerID]
	if !ok {
		return 0, customer.ErrNotFound
	}
	id := s.nextOrder
	s.nextOrder++
	oo := *o
	oo.ID = id
	s.orders[id] = oo
	c.TotalSpend += o.Amount
	if o.OrderDate.After(c.LastSeenAt) {
		c.LastSeenAt = o.OrderDate
	}
	s.customers[o.CustomerID] = c
	return id, nil
}

func (s *Store) ListOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	all, _ := s.ListOrders(ctx)
	var out []domain.Order
	for _, o := range all {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

// --- segment.Repository ---

func (s *Store) CreateSegment(_ context.Context, seg *domain.Segment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSegment
	s.nextSegment++
	ss := *seg
	ss.ID = id
	s.segments[id] = ss
	return id, nil
}

func (s *Store) GetSegment(_ context.Context, id int64) (*domain.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seg, ok := s.segments[id]
	if !ok {
		return nil, segment.ErrNotFound
	}
	return &seg, nil
}

func (s *Store) ListSegmentsByCreator(_ context.Context, createdByID int64) ([]domain.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Segment
	for _, seg := range s.segments {
		if seg.CreatedByID == createdByID {
			out = append(out, seg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// --- campaign.Repository ---

func (s *Store) CreateCampaign(_ context.Context, c *domain.Campaign) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextCampaign
	s.nextCampaign++
	cc := *c
	cc.ID = id
	s.campaigns[id] = cc
	return id, nil
}

func (s *Store) GetCampaign(_ context.Context, id int64) (*domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListCampaignsByCreator(_ context.Context, createdByID int64) ([]domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.CreatedByID == createdByID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateStatusIf(_ context.Context, id int64, from, to domain.CampaignStatus, sentAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return false, campaign.ErrNotFound
	}
	if c.Status != from {
		return false, nil
	}
	c.Status = to
	if sentAt != nil {
		t := *sentAt
		c.SentAt = &t
	}
	s.campaigns[id] = c
	return true, nil
}

func (s *Store) SetAudienceSize(_ context.Context, id int64, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	c.AudienceSize = size
	s.campaigns[id] = c
	return nil
}

func (s *Store) CreateLogs(_ context.Context, logs []domain.CommunicationLog) ([]domain.CommunicationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CommunicationLog, len(logs))
	for i, l := range logs {
		l.ID = s.nextLog
		s.nextLog++
		s.logs[l.ID] = l
		out[i] = l
	}
	return out, nil
}

func (s *Store) MarkLogsSending(_ context.Context, ids []int64, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		l, ok := s.logs[id]
		if !ok {
			return delivery.ErrNotFound
		}
		l.Status = domain.LogSending
		t := sentAt
		l.SentAt = &t
		s.logs[id] = l
	}
	return nil
}

// --- delivery.Repository ---

func (s *Store) GetLog(_ context.Context, id int64) (*domain.CommunicationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	return &l, nil
}

func (s *Store) TransitionLog(_ context.Context, id int64, status domain.LogStatus, deliveredAt *time.Time, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return false, delivery.ErrNotFound
	}
	if l.Status.Terminal() {
		return false, nil
	}
	l.Status = status
	l.DeliveredAt = deliveredAt
	l.FailureReason = reason
	s.logs[id] = l
	return true, nil
}

func (s *Store) IncrementCounters(_ context.Context, campaignID int64, delivered, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return campaign.ErrNotFound
	}
	c.SentCount += delivered
	c.FailedCount += failed
	s.campaigns[campaignID] = c
	return nil
}

func (s *Store) ListLogsByCampaign(_ context.Context, campaignID int64) ([]domain.CommunicationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CommunicationLog
	for _, l := range s.logs {
		if l.CampaignID == campaignID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
