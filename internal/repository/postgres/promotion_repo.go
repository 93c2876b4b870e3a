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

type promotionRepo struct {
	db sqlx.ExtContext
}

// NewPromotionRepo creates a new PostgreSQL-backed PromotionRepository.
func NewPromotionRepo(db sqlx.ExtContext) port.PromotionRepository {
	return &promotionRepo{db: db}
}

// Create inserts rec and fills in the database-assigned seq and promoted_at.
// The partial unique index on active records turns a second live promotion
// of the same document and table into ErrAlreadyPromoted.
func (r *promotionRepo) Create(ctx context.Context, rec *domain.PromotionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO promotion_records (
			id, document_id, target_table, target_ids, before_snapshot, after_snapshot,
			quality_checks_passed, rollback_completed, rolled_back_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq, promoted_at`,
		rec.ID, rec.DocumentID, rec.TargetTable, rec.TargetIDs,
		jsonOrEmpty(rec.BeforeSnapshot), jsonOrEmpty(rec.AfterSnapshot),
		rec.QualityChecksPassed, rec.RollbackCompleted, rec.RolledBackAt).
		Scan(&rec.Seq, &rec.PromotedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyPromoted
		}
		return fmt.Errorf("promotionRepo.Create: %w", err)
	}
	return nil
}

func (r *promotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error) {
	var rec domain.PromotionRecord
	err := sqlx.GetContext(ctx, r.db, &rec, "SELECT * FROM promotion_records WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("promotionRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *promotionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PromotionRecord, error) {
	var rec domain.PromotionRecord
	err := sqlx.GetContext(ctx, r.db, &rec,
		"SELECT * FROM promotion_records WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPromotionNotFound
		}
		if isLockNotAvailable(err) {
			return nil, domain.ErrPromotionConflict
		}
		return nil, fmt.Errorf("promotionRepo.GetForUpdate: %w", err)
	}
	return &rec, nil
}

func (r *promotionRepo) List(ctx context.Context, docID *uuid.UUID, offset, limit int) ([]domain.PromotionRecord, int, error) {
	where := ""
	args := []interface{}{}
	if docID != nil {
		where = " WHERE document_id = $1"
		args = append(args, *docID)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM promotion_records"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("promotionRepo.List count: %w", err)
	}

	query := fmt.Sprintf(`SELECT * FROM promotion_records%s
		ORDER BY seq DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var recs []domain.PromotionRecord
	if err := sqlx.SelectContext(ctx, r.db, &recs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("promotionRepo.List: %w", err)
	}
	return recs, total, nil
}

func (r *promotionRepo) HasActive(ctx context.Context, docID uuid.UUID, targetTable string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM promotion_records
			WHERE document_id = $1 AND target_table = $2 AND NOT rollback_completed
		)`,
		docID, targetTable)
	if err != nil {
		return false, fmt.Errorf("promotionRepo.HasActive: %w", err)
	}
	return exists, nil
}

func (r *promotionRepo) HasLaterOverlapping(ctx context.Context, rec *domain.PromotionRecord) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists,
		`SELECT EXISTS (
			SELECT 1 FROM promotion_records
			WHERE target_table = $1
			  AND id <> $2
			  AND NOT rollback_completed
			  AND seq > $3
			  AND target_ids && $4::text[]
		)`,
		rec.TargetTable, rec.ID, rec.Seq, rec.TargetIDs)
	if err != nil {
		return false, fmt.Errorf("promotionRepo.HasLaterOverlapping: %w", err)
	}
	return exists, nil
}

func (r *promotionRepo) MarkRolledBack(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promotion_records SET rollback_completed = TRUE, rolled_back_at = $2
		 WHERE id = $1 AND NOT rollback_completed`,
		id, at)
	if err != nil {
		return fmt.Errorf("promotionRepo.MarkRolledBack: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("promotionRepo.MarkRolledBack rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrAlreadyRolledBack
	}
	return nil
}
