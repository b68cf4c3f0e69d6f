package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/service/segment"
)

// SegmentRepo implements segment.Repository against PostgreSQL. The rule
// tree is stored as jsonb in the shape it travels over the wire.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

func (r *SegmentRepo) CreateSegment(ctx context.Context, s *domain.Segment) (int64, error) {
	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return 0, fmt.Errorf("marshal rules: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO segments (name, rules, created_by_id, audience_size, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.Name, rules, s.CreatedByID, s.AudienceSize, s.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create segment: %w", err)
	}
	return id, nil
}

func (r *SegmentRepo) GetSegment(ctx context.Context, id int64) (*domain.Segment, error) {
	s := &domain.Segment{}
	var rules []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, rules, created_by_id, audience_size, created_at
		FROM segments WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &rules, &s.CreatedByID, &s.AudienceSize, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, segment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	if err := json.Unmarshal(rules, &s.Rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules for segment %d: %w", id, err)
	}
	return s, nil
}

func (r *SegmentRepo) ListSegmentsByCreator(ctx context.Context, createdByID int64) ([]domain.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, rules, created_by_id, audience_size, created_at
		FROM segments WHERE created_by_id = $1
		ORDER BY created_at DESC, id DESC
	`, createdByID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []domain.Segment
	for rows.Next() {
		var s domain.Segment
		var rules []byte
		if err := rows.Scan(&s.ID, &s.Name, &rules, &s.CreatedByID, &s.AudienceSize, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if err := json.Unmarshal(rules, &s.Rules); err != nil {
			return nil, fmt.Errorf("unmarshal rules for segment %d: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
