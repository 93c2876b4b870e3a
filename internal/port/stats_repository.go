package port

import (
	"context"

	"oceanid/internal/domain"
)

// StatsRepository provides aggregate statistics queries.
type StatsRepository interface {
	DocumentsByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error)
	ReviewQueueDepth(ctx context.Context) (*domain.ReviewQueueDepth, error)
	CountActivePromotions(ctx context.Context) (int, error)
	CountTrainingExamples(ctx context.Context) (int, error)
}
