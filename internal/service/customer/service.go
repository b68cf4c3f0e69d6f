package customer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ignite/crm-engine/internal/bus"
	"github.com/ignite/crm-engine/internal/domain"
)

// CreateInput carries the fields accepted when creating a customer.
type CreateInput struct {
	FirstName  string                `json:"firstName"`
	LastName   string                `json:"lastName"`
	Email      string                `json:"email"`
	Phone      string                `json:"phone,omitempty"`
	Status     domain.CustomerStatus `json:"status,omitempty"`
	TotalSpend float64               `json:"totalSpend,omitempty"`
	LastSeenAt *time.Time            `json:"lastSeenAt,omitempty"`
}

// OrderInput carries the fields accepted when recording an order.
type OrderInput struct {
	CustomerID int64              `json:"customerId"`
	Amount     float64            `json:"amount"`
	OrderDate  *time.Time         `json:"orderDate,omitempty"`
	Status     domain.OrderStatus `json:"status,omitempty"`
}

// updateEvent is the wire shape for asynchronous profile updates.
type updateEvent struct {
	ID     int64        `json:"id"`
	Fields UpdateFields `json:"fields"`
}

// Service implements customer and order operations. Submit* methods publish
// to the event bus and return before anything is persisted; the consumer in
// this package funnels those events back through the direct methods.
type Service struct {
	repo Repository
	bus  bus.Bus
}

// NewService wires a customer service. The bus may be nil when only the
// direct path is needed (tests, batch tooling).
func NewService(repo Repository, b bus.Bus) *Service {
	return &Service{repo: repo, bus: b}
}

// List returns all customers.
func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

// Get returns one customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// Create validates and persists a customer synchronously.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Customer, error) {
	if err := s.validateCreate(ctx, in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &domain.Customer{
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      normalizeEmail(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Status:     in.Status,
		TotalSpend: in.TotalSpend,
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if c.Status == "" {
		c.Status = domain.CustomerNew
	}
	if in.LastSeenAt != nil {
		c.LastSeenAt = in.LastSeenAt.UTC()
	}

	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	c.ID = id
	return c, nil
}

// Submit validates the input and publishes it for asynchronous persistence.
// The caller gets an immediate answer; the write happens when the consumer
// picks the event up.
func (s *Service) Submit(ctx context.Context, in CreateInput) error {
	if err := s.validateCreate(ctx, in); err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, bus.ChannelCustomerCreate, in); err != nil {
		return fmt.Errorf("publishing customer create: %w", err)
	}
	return nil
}

// Update applies a partial profile edit synchronously.
func (s *Service) Update(ctx context.Context, id int64, u UpdateFields) (*domain.Customer, error) {
	if u.Status != nil && !validStatus(*u.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *u.Status)
	}
	return s.repo.UpdateCustomer(ctx, id, u)
}

// SubmitUpdate publishes a profile edit for asynchronous persistence. The
// customer must exist at submit time; a concurrent delete surfaces as a
// consumer-side log line, not a caller error.
func (s *Service) SubmitUpdate(ctx context.Context, id int64, u UpdateFields) error {
	if u.Status != nil && !validStatus(*u.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, *u.Status)
	}
	if _, err := s.repo.GetCustomer(ctx, id); err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, bus.ChannelCustomerUpdate, updateEvent{ID: id, Fields: u}); err != nil {
		return fmt.Errorf("publishing customer update: %w", err)
	}
	return nil
}

// CreateOrder validates and persists an order synchronously. The repository
// bumps the customer's total spend and last-seen timestamp in the same
// atomic step.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*domain.Order, error) {
	if err := s.validateOrder(ctx, in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &domain.Order{
		CustomerID: in.CustomerID,
		Amount:     in.Amount,
		OrderDate:  now,
		Status:     in.Status,
		CreatedAt:  now,
	}
	if in.OrderDate != nil {
		o.OrderDate = in.OrderDate.UTC()
	}
	if o.Status == "" {
		o.Status = domain.OrderCompleted
	}

	id, err := s.repo.CreateOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	o.ID = id
	return o, nil
}

// SubmitOrder validates the input and publishes it for asynchronous
// persistence.
func (s *Service) SubmitOrder(ctx context.Context, in OrderInput) error {
	if err := s.validateOrder(ctx, in); err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, bus.ChannelOrderCreate, in); err != nil {
		return fmt.Errorf("publishing order create: %w", err)
	}
	return nil
}

// ListOrders returns all orders.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// ListOrdersByCustomer returns a customer's orders, checking the customer
// exists first.
func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if _, err := s.repo.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByCustomer(ctx, customerID)
}

func (s *Service) validateCreate(ctx context.Context, in CreateInput) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return fmt.Errorf("%w: firstName is required", ErrValidation)
	}
	if strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: lastName is required", ErrValidation)
	}
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if in.Status != "" && !validStatus(in.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
	if in.TotalSpend < 0 {
		return fmt.Errorf("%w: totalSpend cannot be negative", ErrValidation)
	}

	_, err := s.repo.GetCustomerByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return fmt.Errorf("checking email uniqueness: %w", err)
	}
}

func (s *Service) validateOrder(ctx context.Context, in OrderInput) error {
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.Status != "" {
		switch in.Status {
		case domain.OrderCompleted, domain.OrderPending, domain.OrderCancelled:
		default:
			return fmt.Errorf("%w: unknown order status %q", ErrValidation, in.Status)
		}
	}
	if _, err := s.repo.GetCustomer(ctx, in.CustomerID); err != nil {
		return err
	}
	return nil
}

func validStatus(s domain.CustomerStatus) bool {
	switch s {
	case domain.CustomerActive, domain.CustomerInactive, domain.CustomerNew:
		return true
	}
	return false
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// logf keeps consumer logging in one place so the prefix stays consistent.
func logf(format string, args ...any) {
	log.Printf("[CustomerConsumer] "+format, args...)
}
