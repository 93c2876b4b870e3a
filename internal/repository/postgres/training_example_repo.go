package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

type trainingExampleRepo struct {
	db sqlx.ExtContext
}

// NewTrainingExampleRepo creates a new PostgreSQL-backed TrainingExampleRepository.
func NewTrainingExampleRepo(db sqlx.ExtContext) port.TrainingExampleRepository {
	return &trainingExampleRepo{db: db}
}

func (r *trainingExampleRepo) Create(ctx context.Context, ex *domain.TrainingExample) error {
	if ex.ID == uuid.Nil {
		ex.ID = uuid.New()
	}
	ex.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO training_examples (
			id, extraction_id, original_value, corrected_value,
			correction_type, annotator, context, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ex.ID, ex.ExtractionID, ex.OriginalValue, ex.CorrectedValue,
		ex.CorrectionType, ex.Annotator, jsonOrEmpty(ex.Context), ex.CreatedAt)
	if err != nil {
		return fmt.Errorf("trainingExampleRepo.Create: %w", err)
	}
	return nil
}

func (r *trainingExampleRepo) List(ctx context.Context, offset, limit int) ([]domain.TrainingExample, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM training_examples"); err != nil {
		return nil, 0, fmt.Errorf("trainingExampleRepo.List count: %w", err)
	}

	var examples []domain.TrainingExample
	err := sqlx.SelectContext(ctx, r.db, &examples,
		`SELECT * FROM training_examples
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("trainingExampleRepo.List: %w", err)
	}
	return examples, total, nil
}
