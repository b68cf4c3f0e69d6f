package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) CreateCampaign(ctx context.Context, c *domain.Campaign) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO campaigns
			(name, segment_id, message, created_by_id, status, audience_size,
			 sent_count, failed_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7)
		RETURNING id
	`, c.Name, c.SegmentID, c.Message, c.CreatedByID, c.Status, c.AudienceSize, c.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create campaign: %w", err)
	}
	return id, nil
}

func (r *CampaignRepo) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, segment_id, message, created_by_id, status,
		       sent_at, audience_size, sent_count, failed_count, created_at
		FROM campaigns WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.SegmentID, &c.Message, &c.CreatedByID, &c.Status,
		&c.SentAt, &c.AudienceSize, &c.SentCount, &c.FailedCount, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) ListCampaignsByCreator(ctx context.Context, createdByID int64) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, segment_id, message, created_by_id, status,
		       sent_at, audience_size, sent_count, failed_count, created_at
		FROM campaigns WHERE created_by_id = $1
		ORDER BY created_at DESC, id DESC
	`, createdByID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.Name, &c.SegmentID, &c.Message, &c.CreatedByID, &c.Status,
			&c.SentAt, &c.AudienceSize, &c.SentCount, &c.FailedCount, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateStatusIf is the row-level compare-and-set: the WHERE clause carries
// the expected status, so of two racing transitions exactly one sees a
// nonzero row count.
func (r *CampaignRepo) UpdateStatusIf(ctx context.Context, id int64, from, to domain.CampaignStatus, sentAt *time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, sent_at = COALESCE($2, sent_at)
		WHERE id = $3 AND status = $4
	`, to, sentAt, id, from)
	if err != nil {
		return false, fmt.Errorf("update campaign status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *CampaignRepo) SetAudienceSize(ctx context.Context, id int64, size int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET audience_size = $1 WHERE id = $2
	`, size, id)
	if err != nil {
		return fmt.Errorf("set audience size: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) CreateLogs(ctx context.Context, logs []domain.CommunicationLog) ([]domain.CommunicationLog, error) {
	if len(logs) == 0 {
		return logs, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin logs tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO communication_logs (campaign_id, customer_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare log insert: %w", err)
	}
	defer stmt.Close()

	out := make([]domain.CommunicationLog, len(logs))
	for i, l := range logs {
		if err := stmt.QueryRowContext(ctx, l.CampaignID, l.CustomerID, l.Message, l.Status, l.CreatedAt).Scan(&l.ID); err != nil {
			return nil, fmt.Errorf("insert log for customer %d: %w", l.CustomerID, err)
		}
		out[i] = l
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit logs tx: %w", err)
	}
	return out, nil
}

func (r *CampaignRepo) MarkLogsSending(ctx context.Context, ids []int64, sentAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE communication_logs SET status = $1, sent_at = $2
		WHERE id = ANY($3)
	`, domain.LogSending, sentAt, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark logs sending: %w", err)
	}
	return nil
}
