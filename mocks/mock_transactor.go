package mocks

import (
	"context"

	"oceanid/internal/port"
)

// MockTransactor runs the unit of work directly against Repos. Err, when
// set, is returned instead of calling fn.
type MockTransactor struct {
	Repos port.Repos
	Err   error
	Calls int
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repos) error) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx, m.Repos)
}
