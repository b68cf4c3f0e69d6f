package customer

import (
	"context"

	"github.com/ignite/crm-engine/internal/domain"
)

// Repository defines the data access contract for customers and orders.
// Implementations must be safe for concurrent use.
type Repository interface {
	// GetCustomer returns a single customer. Returns ErrNotFound if absent.
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)

	// GetCustomerByEmail returns the customer with the given email, or
	// ErrNotFound.
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)

	// ListCustomers returns all customers in stable id order.
	ListCustomers(ctx context.Context) ([]domain.Customer, error)

	// CreateCustomer inserts a new customer and returns its id.
	CreateCustomer(ctx context.Context, c *domain.Customer) (int64, error)

	// UpdateCustomer applies non-nil fields to a customer and returns the
	// updated record.
	UpdateCustomer(ctx context.Context, id int64, u UpdateFields) (*domain.Customer, error)

	// CreateOrder inserts an order and, in the same atomic step, adds the
	// amount to the customer's total spend and advances their last-seen
	// timestamp to the order date.
	CreateOrder(ctx context.Context, o *domain.Order) (int64, error)

	// ListOrders returns all orders.
	ListOrders(ctx context.Context) ([]domain.Order, error)

	// ListOrdersByCustomer returns a customer's orders.
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
}

// UpdateFields holds the mutable fields for a customer profile edit.
// Nil fields are not applied.
type UpdateFields struct {
	FirstName *string                `json:"firstName,omitempty"`
	LastName  *string                `json:"lastName,omitempty"`
	Phone     *string                `json:"phone,omitempty"`
	Status    *domain.CustomerStatus `json:"status,omitempty"`
}
