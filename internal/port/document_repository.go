package port

import (
	"context"

	"github.com/google/uuid"

	"oceanid/internal/domain"
)

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Status *domain.DocumentStatus
	Offset int
	Limit  int
}

// DocumentRepository defines the contract for document persistence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	// GetForUpdate row-locks the document for the enclosing transaction.
	// With nowait set a lock held elsewhere fails with domain.ErrPromotionConflict.
	GetForUpdate(ctx context.Context, docID uuid.UUID, nowait bool) (*domain.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]domain.Document, int, error)
	// ClaimUploaded atomically picks up to limit uploaded documents that no
	// other worker holds and that have been tried fewer than maxAttempts
	// times, stamping claimed_at and bumping attempts.
	ClaimUploaded(ctx context.Context, limit, maxAttempts int) ([]domain.Document, error)
	// UpdateStatus moves the document only if it is still in from.
	// Returns domain.ErrInvalidTransition when the row moved underneath.
	UpdateStatus(ctx context.Context, docID uuid.UUID, from, to domain.DocumentStatus) error
	UpdateParseResult(ctx context.Context, doc *domain.Document) error
	RecordFailure(ctx context.Context, docID uuid.UUID, message string) error
}

// ProcessingLogRepository defines the contract for the append-only state transition log.
type ProcessingLogRepository interface {
	Create(ctx context.Context, entry *domain.ProcessingLogEntry) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ProcessingLogEntry, error)
}

// RowRepairRepository defines the contract for parser repair audit persistence.
type RowRepairRepository interface {
	ReplaceForDocument(ctx context.Context, docID uuid.UUID, repairs []domain.RowRepair) error
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.RowRepair, error)
}
