package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"oceanid/internal/domain"
)

// PromotionRepository defines the contract for promotion record persistence.
type PromotionRepository interface {
	Create(ctx context.Context, rec *domain.PromotionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error)
	List(ctx context.Context, docID *uuid.UUID, offset, limit int) ([]domain.PromotionRecord, int, error)
	HasActive(ctx context.Context, docID uuid.UUID, targetTable string) (bool, error)
	// HasLaterOverlapping reports whether an active promotion newer than rec
	// touched any of rec's target rows.
	HasLaterOverlapping(ctx context.Context, rec *domain.PromotionRecord) (bool, error)
	MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error
}

// CanonicalRepository defines the contract for the canonical vessel store.
// The table argument must be one of the configured promotion targets.
type CanonicalRepository interface {
	LockByKeys(ctx context.Context, table string, keys []string) ([]domain.CanonicalVessel, error)
	Upsert(ctx context.Context, table string, rows []domain.CanonicalVessel) ([]domain.CanonicalVessel, error)
	Restore(ctx context.Context, table string, rows []domain.CanonicalVessel) error
	DeleteByKeys(ctx context.Context, table string, keys []string) error
}
