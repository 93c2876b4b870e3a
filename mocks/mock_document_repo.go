package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// MockDocumentRepo is a mock implementation of port.DocumentRepository.
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) GetForUpdate(ctx context.Context, docID uuid.UUID, nowait bool) (*domain.Document, error) {
	args := m.Called(ctx, docID, nowait)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) List(ctx context.Context, filter port.DocumentFilter) ([]domain.Document, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Document), args.Int(1), args.Error(2)
}

func (m *MockDocumentRepo) ClaimUploaded(ctx context.Context, limit, maxAttempts int) ([]domain.Document, error) {
	args := m.Called(ctx, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) UpdateStatus(ctx context.Context, docID uuid.UUID, from, to domain.DocumentStatus) error {
	args := m.Called(ctx, docID, from, to)
	return args.Error(0)
}

func (m *MockDocumentRepo) UpdateParseResult(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) RecordFailure(ctx context.Context, docID uuid.UUID, message string) error {
	args := m.Called(ctx, docID, message)
	return args.Error(0)
}

// MockProcessingLogRepo is a mock implementation of port.ProcessingLogRepository.
type MockProcessingLogRepo struct {
	mock.Mock
}

func (m *MockProcessingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProcessingLogRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingLogEntry), args.Error(1)
}

// MockRowRepairRepo is a mock implementation of port.RowRepairRepository.
type MockRowRepairRepo struct {
	mock.Mock
}

func (m *MockRowRepairRepo) ReplaceForDocument(ctx context.Context, docID uuid.UUID, repairs []domain.RowRepair) error {
	args := m.Called(ctx, docID, repairs)
	return args.Error(0)
}

func (m *MockRowRepairRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.RowRepair, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RowRepair), args.Error(1)
}
