package port

import (
	"context"

	"github.com/google/uuid"

	"oceanid/internal/domain"
)

// CleaningRuleRepository defines the contract for cleaning rule persistence.
type CleaningRuleRepository interface {
	// ListEnabled returns every enabled rule ordered by (priority, id).
	ListEnabled(ctx context.Context) ([]domain.CleaningRule, error)
	List(ctx context.Context) ([]domain.CleaningRule, error)
	// Upsert inserts the rule or, when a rule with the same name exists,
	// replaces its definition and bumps its version.
	Upsert(ctx context.Context, rule *domain.CleaningRule) error
}

// ReviewFilter narrows the review queue.
type ReviewFilter struct {
	DocumentID *uuid.UUID
	ColumnName string
	Offset     int
	Limit      int
}

// ExtractionRepository defines the contract for extraction persistence.
type ExtractionRepository interface {
	// UpsertBatch writes extractions keyed on (document, row, column).
	// Rows that already carry a review decision are left untouched.
	UpsertBatch(ctx context.Context, extractions []domain.Extraction) error
	// PruneRows drops undecided extractions at or beyond rowCount or outside
	// columns, left over from an earlier run of a different file.
	PruneRows(ctx context.Context, docID uuid.UUID, rowCount int, columns []string) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Extraction, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Extraction, error)
	ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error)
	// ListPending returns undecided extractions flagged for review, lowest
	// confidence first.
	ListPending(ctx context.Context, filter ReviewFilter) ([]domain.Extraction, int, error)
	// RecordDecision persists the review fields of e only if no decision exists yet.
	// Returns domain.ErrReviewDecisionConflict when another decision won.
	RecordDecision(ctx context.Context, e *domain.Extraction) error
	CountUndecided(ctx context.Context, docID uuid.UUID) (int, error)
}

// TrainingExampleRepository defines the contract for the append-only correction store.
type TrainingExampleRepository interface {
	Create(ctx context.Context, example *domain.TrainingExample) error
	List(ctx context.Context, offset, limit int) ([]domain.TrainingExample, int, error)
}
