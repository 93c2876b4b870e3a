package port

import "context"

// Repos bundles the repositories bound to a single transaction.
type Repos struct {
	Documents        DocumentRepository
	ProcessingLogs   ProcessingLogRepository
	RowRepairs       RowRepairRepository
	Extractions      ExtractionRepository
	TrainingExamples TrainingExampleRepository
	Promotions       PromotionRepository
	Canonical        CanonicalRepository
}

// Transactor runs fn inside one database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
