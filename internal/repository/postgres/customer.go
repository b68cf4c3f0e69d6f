// Package postgres implements the service repositories against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/customer"
)

// CustomerRepo implements customer.Repository against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, first_name, last_name, email, COALESCE(phone,''), status, total_spend, last_seen_at, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*domain.Customer, error) {
	c := &domain.Customer{}
	err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Status, &c.TotalSpend, &c.LastSeenAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CustomerRepo) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+` FROM customers WHERE LOWER(email) = LOWER($1)
	`, email))
	if err == sql.ErrNoRows {
		return nil, customer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer by email: %w", err)
	}
	return c, nil
}

func (r *CustomerRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+` FROM customers ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) CreateCustomer(ctx context.Context, c *domain.Customer) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, status, total_spend, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, c.FirstName, c.LastName, c.Email, c.Phone, c.Status, c.TotalSpend, c.LastSeenAt, c.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	return id, nil
}

func (r *CustomerRepo) UpdateCustomer(ctx context.Context, id int64, u customer.UpdateFields) (*domain.Customer, error) {
	sets := []string{}
	args := []any{}
	idx := 1
	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}

	if u.FirstName != nil {
		add("first_name", *u.FirstName)
	}
	if u.LastName != nil {
		add("last_name", *u.LastName)
	}
	if u.Phone != nil {
		add("phone", *u.Phone)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}

	if len(sets) > 0 {
		q := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d", joinComma(sets), idx)
		args = append(args, id)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, customer.ErrNotFound
		}
	}
	return r.GetCustomer(ctx, id)
}

// CreateOrder inserts the order and bumps the customer's total spend and
// last-seen timestamp in one transaction, so a crash can never leave an
// order without its spend contribution.
func (r *CustomerRepo) CreateOrder(ctx context.Context, o *domain.Order) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, order_date, amount, status, items, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, o.CustomerID, o.OrderDate, o.Amount, o.Status, nullableJSON(o.Items), o.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET total_spend = total_spend + $1,
		    last_seen_at = GREATEST(last_seen_at, $2)
		WHERE id = $3
	`, o.Amount, o.OrderDate, o.CustomerID)
	if err != nil {
		return 0, fmt.Errorf("bump customer spend: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, customer.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order tx: %w", err)
	}
	return id, nil
}

func (r *CustomerRepo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return r.listOrders(ctx, `SELECT id, customer_id, order_date, amount, status, items, created_at FROM orders ORDER BY id`)
}

func (r *CustomerRepo) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	return r.listOrders(ctx, `SELECT id, customer_id, order_date, amount, status, items, created_at FROM orders WHERE customer_id = $1 ORDER BY id`, customerID)
}

func (r *CustomerRepo) listOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		var items sql.NullString
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.Amount, &o.Status, &items, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if items.Valid {
			o.Items = []byte(items.String)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
