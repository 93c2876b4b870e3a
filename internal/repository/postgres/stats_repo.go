package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

type statsRepo struct {
	db sqlx.QueryerContext
}

// NewStatsRepo creates a new PostgreSQL-backed StatsRepository.
func NewStatsRepo(db sqlx.QueryerContext) port.StatsRepository {
	return &statsRepo{db: db}
}

// Bands follow the review priorities: below 0.6 is urgent, below 0.8 is medium.
const reviewQueueDepthQuery = `SELECT
	COUNT(CASE WHEN confidence < 0.6 THEN 1 END) AS high,
	COUNT(CASE WHEN confidence >= 0.6 AND confidence < 0.8 THEN 1 END) AS medium,
	COUNT(CASE WHEN confidence >= 0.8 THEN 1 END) AS low
FROM extractions
WHERE needs_review AND review_status IS NULL`

func (r *statsRepo) DocumentsByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	var rows []struct {
		Status domain.DocumentStatus `db:"status"`
		Count  int                   `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows,
		"SELECT status, COUNT(*) AS count FROM documents GROUP BY status"); err != nil {
		return nil, fmt.Errorf("statsRepo.DocumentsByStatus: %w", err)
	}
	out := make(map[domain.DocumentStatus]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *statsRepo) ReviewQueueDepth(ctx context.Context) (*domain.ReviewQueueDepth, error) {
	var depth domain.ReviewQueueDepth
	if err := sqlx.GetContext(ctx, r.db, &depth, reviewQueueDepthQuery); err != nil {
		return nil, fmt.Errorf("statsRepo.ReviewQueueDepth: %w", err)
	}
	return &depth, nil
}

func (r *statsRepo) CountActivePromotions(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n,
		"SELECT COUNT(*) FROM promotion_records WHERE NOT rollback_completed"); err != nil {
		return 0, fmt.Errorf("statsRepo.CountActivePromotions: %w", err)
	}
	return n, nil
}

func (r *statsRepo) CountTrainingExamples(ctx context.Context) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, r.db, &n, "SELECT COUNT(*) FROM training_examples"); err != nil {
		return 0, fmt.Errorf("statsRepo.CountTrainingExamples: %w", err)
	}
	return n, nil
}
