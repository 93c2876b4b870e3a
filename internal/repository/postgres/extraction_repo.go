package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

type extractionRepo struct {
	db sqlx.ExtContext
}

// NewExtractionRepo creates a new PostgreSQL-backed ExtractionRepository.
func NewExtractionRepo(db sqlx.ExtContext) port.ExtractionRepository {
	return &extractionRepo{db: db}
}

func (r *extractionRepo) UpsertBatch(ctx context.Context, extractions []domain.Extraction) error {
	now := time.Now().UTC()
	const cols = 13
	for start := 0; start < len(extractions); start += insertChunk {
		end := start + insertChunk
		if end > len(extractions) {
			end = len(extractions)
		}
		batch := extractions[start:end]
		args := make([]interface{}, 0, len(batch)*cols)
		for i := range batch {
			e := &batch[i]
			if e.ID == uuid.Nil {
				e.ID = uuid.New()
			}
			e.CreatedAt = now
			e.UpdatedAt = now
			args = append(args,
				e.ID, e.DocumentID, e.RowIndex, e.ColumnName, e.RawValue,
				e.CleanedValue, e.RuleChain, e.Confidence, e.Similarity, e.NeedsReview,
				e.ReviewReasons, e.CreatedAt, e.UpdatedAt)
		}

		query := `INSERT INTO extractions (
			id, document_id, row_index, column_name, raw_value,
			cleaned_value, rule_chain, confidence, similarity, needs_review,
			review_reasons, created_at, updated_at
		) VALUES ` + valuesClause(len(batch), cols) + `
		ON CONFLICT (document_id, row_index, column_name) DO UPDATE SET
			raw_value = EXCLUDED.raw_value,
			cleaned_value = EXCLUDED.cleaned_value,
			rule_chain = EXCLUDED.rule_chain,
			confidence = EXCLUDED.confidence,
			similarity = EXCLUDED.similarity,
			needs_review = EXCLUDED.needs_review,
			review_reasons = EXCLUDED.review_reasons,
			updated_at = EXCLUDED.updated_at
		WHERE extractions.review_status IS NULL`

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("extractionRepo.UpsertBatch: %w", err)
		}
	}
	return nil
}

func (r *extractionRepo) PruneRows(ctx context.Context, docID uuid.UUID, rowCount int, columns []string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM extractions
		 WHERE document_id = $1 AND review_status IS NULL
		   AND (row_index >= $2 OR NOT (column_name = ANY($3::text[])))`,
		docID, rowCount, pq.StringArray(columns))
	if err != nil {
		return 0, fmt.Errorf("extractionRepo.PruneRows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("extractionRepo.PruneRows rows: %w", err)
	}
	return n, nil
}

func (r *extractionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Extraction, error) {
	return r.get(ctx, "SELECT * FROM extractions WHERE id = $1", id, "GetByID")
}

func (r *extractionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Extraction, error) {
	return r.get(ctx, "SELECT * FROM extractions WHERE id = $1 FOR UPDATE", id, "GetForUpdate")
}

func (r *extractionRepo) get(ctx context.Context, query string, id uuid.UUID, op string) (*domain.Extraction, error) {
	var e domain.Extraction
	if err := sqlx.GetContext(ctx, r.db, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrExtractionNotFound
		}
		return nil, fmt.Errorf("extractionRepo.%s: %w", op, err)
	}
	return &e, nil
}

func (r *extractionRepo) ListByDocument(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error) {
	var extractions []domain.Extraction
	err := sqlx.SelectContext(ctx, r.db, &extractions,
		`SELECT * FROM extractions
		 WHERE document_id = $1
		 ORDER BY row_index, column_name`,
		docID)
	if err != nil {
		return nil, fmt.Errorf("extractionRepo.ListByDocument: %w", err)
	}
	return extractions, nil
}

func (r *extractionRepo) ListPending(ctx context.Context, filter port.ReviewFilter) ([]domain.Extraction, int, error) {
	conds := []string{
		"e.needs_review",
		"e.review_status IS NULL",
		"d.status <> $1",
	}
	args := []interface{}{domain.DocumentStatusRejected}
	if filter.DocumentID != nil {
		args = append(args, *filter.DocumentID)
		conds = append(conds, fmt.Sprintf("e.document_id = $%d", len(args)))
	}
	if filter.ColumnName != "" {
		args = append(args, filter.ColumnName)
		conds = append(conds, fmt.Sprintf("e.column_name = $%d", len(args)))
	}
	from := " FROM extractions e JOIN documents d ON d.id = e.document_id WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*)"+from, args...); err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.ListPending count: %w", err)
	}

	query := fmt.Sprintf(`SELECT e.*%s
		ORDER BY e.confidence ASC, e.document_id, e.row_index, e.column_name
		LIMIT $%d OFFSET $%d`, from, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var extractions []domain.Extraction
	if err := sqlx.SelectContext(ctx, r.db, &extractions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("extractionRepo.ListPending: %w", err)
	}
	return extractions, total, nil
}

func (r *extractionRepo) RecordDecision(ctx context.Context, e *domain.Extraction) error {
	e.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE extractions SET
			review_status = $2, reviewed_by = $3, reviewed_at = $4,
			cleaned_value = $5, needs_review = $6, updated_at = $7
		 WHERE id = $1 AND review_status IS NULL`,
		e.ID, e.ReviewStatus, e.ReviewedBy, e.ReviewedAt,
		e.CleanedValue, e.NeedsReview, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("extractionRepo.RecordDecision: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("extractionRepo.RecordDecision rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrReviewDecisionConflict
	}
	return nil
}

func (r *extractionRepo) CountUndecided(ctx context.Context, docID uuid.UUID) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n,
		`SELECT COUNT(*) FROM extractions
		 WHERE document_id = $1 AND needs_review AND review_status IS NULL`,
		docID)
	if err != nil {
		return 0, fmt.Errorf("extractionRepo.CountUndecided: %w", err)
	}
	return n, nil
}
