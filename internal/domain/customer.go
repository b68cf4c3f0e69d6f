package domain

import (
	"encoding/json"
	"time"
)

// CustomerStatus enumerates the states a customer can be in.
type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerNew      CustomerStatus = "new"
)

// Customer represents a single customer profile.
type Customer struct {
	ID         int64          `json:"id" db:"id"`
	FirstName  string         `json:"firstName" db:"first_name"`
	LastName   string         `json:"lastName" db:"last_name"`
	Email      string         `json:"email" db:"email"`
	Phone      string         `json:"phone,omitempty" db:"phone"`
	Status     CustomerStatus `json:"status" db:"status"`
	TotalSpend float64        `json:"totalSpend" db:"total_spend"`
	LastSeenAt time.Time      `json:"lastSeenAt" db:"last_seen_at"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
}

// Field resolves a customer attribute by its wire name. Returns false when
// the name does not map to any attribute; rule evaluation treats that as a
// non-match and message personalization leaves the placeholder verbatim.
// "lastSeen" is accepted as a legacy alias for "lastSeenAt".
func (c *Customer) Field(name string) (any, bool) {
	switch name {
	case "id":
		return c.ID, true
	case "firstName":
		return c.FirstName, true
	case "lastName":
		return c.LastName, true
	case "email":
		return c.Email, true
	case "phone":
		return c.Phone, true
	case "status":
		return string(c.Status), true
	case "totalSpend":
		return c.TotalSpend, true
	case "lastSeenAt", "lastSeen":
		return c.LastSeenAt, true
	case "createdAt":
		return c.CreatedAt, true
	}
	return nil, false
}

// OrderStatus enumerates the states of an order.
type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderPending   OrderStatus = "pending"
	OrderCancelled OrderStatus = "cancelled"
)

// Order represents a customer purchase. Creating an order increases the
// customer's total spend and advances their last-seen timestamp.
type Order struct {
	ID         int64           `json:"id" db:"id"`
	CustomerID int64           `json:"customerId" db:"customer_id"`
	OrderDate  time.Time       `json:"orderDate" db:"order_date"`
	Amount     float64         `json:"amount" db:"amount"`
	Status     OrderStatus     `json:"status" db:"status"`
	Items      json.RawMessage `json:"items,omitempty" db:"items"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
}
