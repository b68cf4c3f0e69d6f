package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/delivery"
)

// DeliveryRepo implements delivery.Repository against PostgreSQL.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a Postgres-backed delivery ledger.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo { return &DeliveryRepo{db: db} }

const logColumns = `id, campaign_id, customer_id, message, status, sent_at, delivered_at, COALESCE(failure_reason,''), created_at`

func scanLog(row interface{ Scan(...any) error }) (*domain.CommunicationLog, error) {
	l := &domain.CommunicationLog{}
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.CustomerID, &l.Message, &l.Status,
		&l.SentAt, &l.DeliveredAt, &l.FailureReason, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *DeliveryRepo) GetLog(ctx context.Context, id int64) (*domain.CommunicationLog, error) {
	l, err := scanLog(r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM communication_logs WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, delivery.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get log: %w", err)
	}
	return l, nil
}

// TransitionLog relies on the WHERE clause for idempotence: a row already in
// a terminal state matches nothing and the row count tells the caller the
// outcome was absorbed.
func (r *DeliveryRepo) TransitionLog(ctx context.Context, id int64, status domain.LogStatus, deliveredAt *time.Time, reason string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE communication_logs
		SET status = $1, delivered_at = $2, failure_reason = NULLIF($3, '')
		WHERE id = $4 AND status NOT IN ('delivered', 'failed')
	`, status, deliveredAt, reason, id)
	if err != nil {
		return false, fmt.Errorf("transition log: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *DeliveryRepo) IncrementCounters(ctx context.Context, campaignID int64, delivered, failed int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET sent_count = sent_count + $1, failed_count = failed_count + $2
		WHERE id = $3
	`, delivered, failed, campaignID)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	return nil
}

func (r *DeliveryRepo) ListLogsByCampaign(ctx context.Context, campaignID int64) ([]domain.CommunicationLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+logColumns+` FROM communication_logs
		WHERE campaign_id = $1 ORDER BY id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []domain.CommunicationLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
