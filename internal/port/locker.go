package port

import "context"

// Unlock releases a lock obtained from a Locker.
type Unlock func(ctx context.Context) error

// Locker provides a cross-process exclusive section keyed by name.
// TryLock never waits: a held key fails with domain.ErrPromotionConflict.
type Locker interface {
	TryLock(ctx context.Context, key string) (Unlock, error)
}
