package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"oceanid/internal/domain"
)

// MockPromotionRepo is a mock implementation of port.PromotionRepository.
type MockPromotionRepo struct {
	mock.Mock
}

func (m *MockPromotionRepo) Create(ctx context.Context, rec *domain.PromotionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockPromotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromotionRecord), args.Error(1)
}

func (m *MockPromotionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromotionRecord), args.Error(1)
}

func (m *MockPromotionRepo) List(ctx context.Context, docID *uuid.UUID, offset, limit int) ([]domain.PromotionRecord, int, error) {
	args := m.Called(ctx, docID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PromotionRecord), args.Int(1), args.Error(2)
}

func (m *MockPromotionRepo) HasActive(ctx context.Context, docID uuid.UUID, targetTable string) (bool, error) {
	args := m.Called(ctx, docID, targetTable)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromotionRepo) HasLaterOverlapping(ctx context.Context, rec *domain.PromotionRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockPromotionRepo) MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockCanonicalRepo is a mock implementation of port.CanonicalRepository.
type MockCanonicalRepo struct {
	mock.Mock
}

func (m *MockCanonicalRepo) LockByKeys(ctx context.Context, table string, keys []string) ([]domain.CanonicalVessel, error) {
	args := m.Called(ctx, table, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CanonicalVessel), args.Error(1)
}

func (m *MockCanonicalRepo) Upsert(ctx context.Context, table string, rows []domain.CanonicalVessel) ([]domain.CanonicalVessel, error) {
	args := m.Called(ctx, table, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CanonicalVessel), args.Error(1)
}

func (m *MockCanonicalRepo) Restore(ctx context.Context, table string, rows []domain.CanonicalVessel) error {
	args := m.Called(ctx, table, rows)
	return args.Error(0)
}

func (m *MockCanonicalRepo) DeleteByKeys(ctx context.Context, table string, keys []string) error {
	args := m.Called(ctx, table, keys)
	return args.Error(0)
}
