package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"oceanid/internal/domain"
)

// MockStatsRepo is a mock implementation of port.StatsRepository.
type MockStatsRepo struct {
	mock.Mock
}

func (m *MockStatsRepo) DocumentsByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.DocumentStatus]int), args.Error(1)
}

func (m *MockStatsRepo) ReviewQueueDepth(ctx context.Context) (*domain.ReviewQueueDepth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewQueueDepth), args.Error(1)
}

func (m *MockStatsRepo) CountActivePromotions(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockStatsRepo) CountTrainingExamples(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
