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

type rowRepairRepo struct {
	db sqlx.ExtContext
}

// NewRowRepairRepo creates a new PostgreSQL-backed RowRepairRepository.
func NewRowRepairRepo(db sqlx.ExtContext) port.RowRepairRepository {
	return &rowRepairRepo{db: db}
}

// ReplaceForDocument swaps the document's repair audit for repairs. Callers
// run it inside a transaction so readers never see a partial set.
func (r *rowRepairRepo) ReplaceForDocument(ctx context.Context, docID uuid.UUID, repairs []domain.RowRepair) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM row_repairs WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("rowRepairRepo.ReplaceForDocument delete: %w", err)
	}

	now := time.Now().UTC()
	const cols = 8
	for start := 0; start < len(repairs); start += insertChunk {
		end := start + insertChunk
		if end > len(repairs) {
			end = len(repairs)
		}
		batch := repairs[start:end]
		args := make([]interface{}, 0, len(batch)*cols)
		for i := range batch {
			rp := &batch[i]
			if rp.ID == uuid.Nil {
				rp.ID = uuid.New()
			}
			rp.DocumentID = docID
			rp.CreatedAt = now
			args = append(args, rp.ID, rp.DocumentID, rp.RowIndex, rp.Kind, rp.Severity, rp.Position, rp.Detail, rp.CreatedAt)
		}
		query := `INSERT INTO row_repairs (id, document_id, row_index, kind, severity, position, detail, created_at)
			VALUES ` + valuesClause(len(batch), cols)
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("rowRepairRepo.ReplaceForDocument insert: %w", err)
		}
	}
	return nil
}

func (r *rowRepairRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.RowRepair, error) {
	var repairs []domain.RowRepair
	err := sqlx.SelectContext(ctx, r.db, &repairs,
		`SELECT * FROM row_repairs
		 WHERE document_id = $1
		 ORDER BY row_index, position, created_at`,
		docID)
	if err != nil {
		return nil, fmt.Errorf("rowRepairRepo.ListByDocument: %w", err)
	}
	return repairs, nil
}
