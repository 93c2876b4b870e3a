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

type processingLogRepo struct {
	db sqlx.ExtContext
}

// NewProcessingLogRepo creates a new PostgreSQL-backed ProcessingLogRepository.
func NewProcessingLogRepo(db sqlx.ExtContext) port.ProcessingLogRepository {
	return &processingLogRepo{db: db}
}

func (r *processingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_log (id, document_id, from_state, to_state, success, metrics, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.DocumentID, entry.FromState, entry.ToState, entry.Success,
		jsonOrEmpty(entry.Metrics), entry.Message, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("processingLogRepo.Create: %w", err)
	}
	return nil
}

func (r *processingLogRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	var entries []domain.ProcessingLogEntry
	err := sqlx.SelectContext(ctx, r.db, &entries,
		`SELECT * FROM processing_log
		 WHERE document_id = $1
		 ORDER BY created_at, id`,
		docID)
	if err != nil {
		return nil, fmt.Errorf("processingLogRepo.ListByDocument: %w", err)
	}
	return entries, nil
}
