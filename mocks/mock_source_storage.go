package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"oceanid/internal/port"
)

// MockSourceStorage is a mock implementation of port.SourceStorage.
type MockSourceStorage struct {
	mock.Mock
}

func (m *MockSourceStorage) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockSourceStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockLocker is a mock implementation of port.Locker.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryLock(ctx context.Context, key string) (port.Unlock, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.Unlock), args.Error(1)
}
