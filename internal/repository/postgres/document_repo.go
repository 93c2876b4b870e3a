package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// claimLease is how long a claimed document stays invisible to other
// workers before it may be claimed again.
const claimLease = 15 * time.Minute

type documentRepo struct {
	db sqlx.ExtContext
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db sqlx.ExtContext) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = domain.DocumentStatusUploaded
	}

	query := `INSERT INTO documents (
		id, source_key, file_name, source_type, source_name,
		delimiter, columns, status, expected_fields, row_count,
		attempts, last_error, claimed_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15
	)`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.SourceKey, doc.FileName, doc.SourceType, doc.SourceName,
		doc.Delimiter, doc.Columns, doc.Status, doc.ExpectedFields, doc.RowCount,
		doc.Attempts, doc.LastError, doc.ClaimedAt, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := sqlx.GetContext(ctx, r.db, &doc, "SELECT * FROM documents WHERE id = $1", docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, docID uuid.UUID, nowait bool) (*domain.Document, error) {
	query := "SELECT * FROM documents WHERE id = $1 FOR UPDATE"
	if nowait {
		query += " NOWAIT"
	}
	var doc domain.Document
	err := sqlx.GetContext(ctx, r.db, &doc, query, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		if isLockNotAvailable(err) {
			return nil, domain.ErrPromotionConflict
		}
		return nil, fmt.Errorf("documentRepo.GetForUpdate: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) List(ctx context.Context, filter port.DocumentFilter) ([]domain.Document, int, error) {
	where := ""
	args := []interface{}{}
	if filter.Status != nil {
		where = " WHERE status = $1"
		args = append(args, *filter.Status)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM documents"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List count: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM documents%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	var docs []domain.Document
	if err := sqlx.SelectContext(ctx, r.db, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("documentRepo.List: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepo) ClaimUploaded(ctx context.Context, limit, maxAttempts int) ([]domain.Document, error) {
	query := `UPDATE documents
		SET claimed_at = NOW(), attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM documents
			WHERE status = $1
			  AND attempts < $2
			  AND (claimed_at IS NULL OR claimed_at < NOW() - make_interval(secs => $3))
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *`

	var docs []domain.Document
	err := sqlx.SelectContext(ctx, r.db, &docs, query,
		domain.DocumentStatusUploaded, maxAttempts, claimLease.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimUploaded: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, docID uuid.UUID, from, to domain.DocumentStatus) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = $2`,
		docID, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStatus: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateStatus rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: document %s is no longer %s", domain.ErrInvalidTransition, docID, from)
	}
	return nil
}

func (r *documentRepo) UpdateParseResult(ctx context.Context, doc *domain.Document) error {
	doc.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET delimiter = $2, columns = $3, expected_fields = $4,
		 row_count = $5, last_error = '', updated_at = $6
		 WHERE id = $1`,
		doc.ID, doc.Delimiter, doc.Columns, doc.ExpectedFields, doc.RowCount, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateParseResult: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("documentRepo.UpdateParseResult rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// RecordFailure releases the claim and stores the error. A document that
// failed part way through its first run falls back to uploaded so the
// worker can retry it.
func (r *documentRepo) RecordFailure(ctx context.Context, docID uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
			last_error = $2,
			claimed_at = NULL,
			status = CASE WHEN status IN ($3, $4) THEN $5 ELSE status END,
			updated_at = NOW()
		 WHERE id = $1`,
		docID, message, domain.DocumentStatusParsed, domain.DocumentStatusCleaned, domain.DocumentStatusUploaded)
	if err != nil {
		return fmt.Errorf("documentRepo.RecordFailure: %w", err)
	}
	return nil
}
