package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// StatsService provides aggregate statistics.
type StatsService interface {
	GetStats(ctx context.Context) (*domain.Stats, error)
}

type statsService struct {
	statsRepo port.StatsRepository
}

// NewStatsService creates a new StatsService implementation.
func NewStatsService(statsRepo port.StatsRepository) StatsService {
	return &statsService{statsRepo: statsRepo}
}

func (s *statsService) GetStats(ctx context.Context) (*domain.Stats, error) {
	var (
		stats = &domain.Stats{}
		depth *domain.ReviewQueueDepth
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		byStatus, err := s.statsRepo.DocumentsByStatus(gctx)
		stats.DocumentsByStatus = byStatus
		return err
	})
	g.Go(func() error {
		var err error
		depth, err = s.statsRepo.ReviewQueueDepth(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ActivePromotions, err = s.statsRepo.CountActivePromotions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TrainingExamples, err = s.statsRepo.CountTrainingExamples(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, n := range stats.DocumentsByStatus {
		stats.TotalDocuments += n
	}
	stats.ReviewQueue = *depth
	stats.PendingReview = depth.Total()
	return stats, nil
}
