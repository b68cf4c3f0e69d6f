package memory

import (
	"context"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
)

// Seed loads a small demo dataset so a fresh in-memory deployment has
// something to segment against. Safe to call once, right after NewStore.
func (s *Store) Seed(ctx context.Context) error {
	now := time.Now().UTC()
	customers := []domain.Customer{
		{FirstName: "Priya", LastName: "Sharma", Email: "priya.sharma@example.com", Phone: "+91-9876543210", Status: domain.CustomerActive, TotalSpend: 15750.50, LastSeenAt: now.AddDate(0, 0, -2), CreatedAt: now.AddDate(0, -6, 0)},
		{FirstName: "Arjun", LastName: "Patel", Email: "arjun.patel@example.com", Phone: "+91-9876543211", Status: domain.CustomerActive, TotalSpend: 8920.00, LastSeenAt: now.AddDate(0, 0, -5), CreatedAt: now.AddDate(0, -4, 0)},
		{FirstName: "Meera", LastName: "Iyer", Email: "meera.iyer@example.com", Phone: "+91-9876543212", Status: domain.CustomerInactive, TotalSpend: 2340.75, LastSeenAt: now.AddDate(0, -3, 0), CreatedAt: now.AddDate(-1, 0, 0)},
		{FirstName: "Rahul", LastName: "Verma", Email: "rahul.verma@example.com", Phone: "+91-9876543213", Status: domain.CustomerActive, TotalSpend: 45200.00, LastSeenAt: now.AddDate(0, 0, -1), CreatedAt: now.AddDate(0, -9, 0)},
		{FirstName: "Ananya", LastName: "Reddy", Email: "ananya.reddy@example.com", Phone: "+91-9876543214", Status: domain.CustomerNew, TotalSpend: 0, LastSeenAt: now, CreatedAt: now.AddDate(0, 0, -3)},
	}

	ids := make([]int64, 0, len(customers))
	for i := range customers {
		id, err := s.CreateCustomer(ctx, &customers[i])
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	orders := []domain.Order{
		{CustomerID: ids[0], OrderDate: now.AddDate(0, 0, -2), Amount: 1250.50, Status: domain.OrderCompleted, CreatedAt: now.AddDate(0, 0, -2)},
		{CustomerID: ids[1], OrderDate: now.AddDate(0, 0, -5), Amount: 890.00, Status: domain.OrderCompleted, CreatedAt: now.AddDate(0, 0, -5)},
		{CustomerID: ids[3], OrderDate: now.AddDate(0, 0, -1), Amount: 5200.00, Status: domain.OrderPending, CreatedAt: now.AddDate(0, 0, -1)},
	}
	for i := range orders {
		// Seed spend figures already include these orders.
		s.mu.Lock()
		id := s.nextOrder
		s.nextOrder++
		orders[i].ID = id
		s.orders[id] = orders[i]
		s.mu.Unlock()
	}
	return nil
}
