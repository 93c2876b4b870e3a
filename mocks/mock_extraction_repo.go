package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// MockExtractionRepo is a mock implementation of port.ExtractionRepository.
type MockExtractionRepo struct {
	mock.Mock
}

func (m *MockExtractionRepo) UpsertBatch(ctx context.Context, extractions []domain.Extraction) error {
	args := m.Called(ctx, extractions)
	return args.Error(0)
}

func (m *MockExtractionRepo) PruneRows(ctx context.Context, docID uuid.UUID, rowCount int, columns []string) (int64, error) {
	args := m.Called(ctx, docID, rowCount, columns)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExtractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Extraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Extraction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Extraction), args.Error(1)
}

func (m *MockExtractionRepo) ListPending(ctx context.Context, filter port.ReviewFilter) ([]domain.Extraction, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Extraction), args.Int(1), args.Error(2)
}

func (m *MockExtractionRepo) RecordDecision(ctx context.Context, e *domain.Extraction) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockExtractionRepo) CountUndecided(ctx context.Context, docID uuid.UUID) (int, error) {
	args := m.Called(ctx, docID)
	return args.Int(0), args.Error(1)
}

// MockTrainingExampleRepo is a mock implementation of port.TrainingExampleRepository.
type MockTrainingExampleRepo struct {
	mock.Mock
}

func (m *MockTrainingExampleRepo) Create(ctx context.Context, example *domain.TrainingExample) error {
	args := m.Called(ctx, example)
	return args.Error(0)
}

func (m *MockTrainingExampleRepo) List(ctx context.Context, offset, limit int) ([]domain.TrainingExample, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.TrainingExample), args.Int(1), args.Error(2)
}
