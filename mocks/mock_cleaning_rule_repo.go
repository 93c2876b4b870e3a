package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"oceanid/internal/domain"
)

// MockCleaningRuleRepo is a mock implementation of port.CleaningRuleRepository.
type MockCleaningRuleRepo struct {
	mock.Mock
}

func (m *MockCleaningRuleRepo) ListEnabled(ctx context.Context) ([]domain.CleaningRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CleaningRule), args.Error(1)
}

func (m *MockCleaningRuleRepo) List(ctx context.Context) ([]domain.CleaningRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CleaningRule), args.Error(1)
}

func (m *MockCleaningRuleRepo) Upsert(ctx context.Context, rule *domain.CleaningRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}
