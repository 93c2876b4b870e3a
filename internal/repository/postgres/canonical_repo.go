package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

type canonicalRepo struct {
	db sqlx.ExtContext
}

// NewCanonicalRepo creates a new PostgreSQL-backed CanonicalRepository.
// Every method takes the target table; names are validated and quoted.
func NewCanonicalRepo(db sqlx.ExtContext) port.CanonicalRepository {
	return &canonicalRepo{db: db}
}

func (r *canonicalRepo) LockByKeys(ctx context.Context, table string, keys []string) ([]domain.CanonicalVessel, error) {
	t, err := quoteTable(table)
	if err != nil {
		return nil, fmt.Errorf("canonicalRepo.LockByKeys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	var rows []domain.CanonicalVessel
	err = sqlx.SelectContext(ctx, r.db, &rows,
		`SELECT * FROM `+t+`
		 WHERE natural_key = ANY($1::text[])
		 ORDER BY natural_key
		 FOR UPDATE`,
		pq.StringArray(keys))
	if err != nil {
		return nil, fmt.Errorf("canonicalRepo.LockByKeys: %w", err)
	}
	return rows, nil
}

// Upsert writes rows keyed on natural_key and returns the stored state.
// Keys must be unique within rows.
func (r *canonicalRepo) Upsert(ctx context.Context, table string, rows []domain.CanonicalVessel) ([]domain.CanonicalVessel, error) {
	t, err := quoteTable(table)
	if err != nil {
		return nil, fmt.Errorf("canonicalRepo.Upsert: %w", err)
	}
	onConflict := `ON CONFLICT (natural_key) DO UPDATE SET
		attributes = EXCLUDED.attributes,
		source_document_id = EXCLUDED.source_document_id,
		version = ` + t + `.version + 1,
		updated_at = EXCLUDED.updated_at
	RETURNING *`

	now := time.Now().UTC()
	for i := range rows {
		if rows[i].Version == 0 {
			rows[i].Version = 1
		}
		rows[i].UpdatedAt = now
	}
	stored, err := r.write(ctx, t, rows, onConflict)
	if err != nil {
		return nil, fmt.Errorf("canonicalRepo.Upsert: %w", err)
	}
	return stored, nil
}

// Restore puts rows back exactly as captured, including id and version.
func (r *canonicalRepo) Restore(ctx context.Context, table string, rows []domain.CanonicalVessel) error {
	t, err := quoteTable(table)
	if err != nil {
		return fmt.Errorf("canonicalRepo.Restore: %w", err)
	}
	onConflict := `ON CONFLICT (natural_key) DO UPDATE SET
		attributes = EXCLUDED.attributes,
		source_document_id = EXCLUDED.source_document_id,
		version = EXCLUDED.version,
		updated_at = EXCLUDED.updated_at
	RETURNING *`
	if _, err := r.write(ctx, t, rows, onConflict); err != nil {
		return fmt.Errorf("canonicalRepo.Restore: %w", err)
	}
	return nil
}

func (r *canonicalRepo) DeleteByKeys(ctx context.Context, table string, keys []string) error {
	t, err := quoteTable(table)
	if err != nil {
		return fmt.Errorf("canonicalRepo.DeleteByKeys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM `+t+` WHERE natural_key = ANY($1::text[])`,
		pq.StringArray(keys)); err != nil {
		return fmt.Errorf("canonicalRepo.DeleteByKeys: %w", err)
	}
	return nil
}

func (r *canonicalRepo) write(ctx context.Context, quoted string, rows []domain.CanonicalVessel, onConflict string) ([]domain.CanonicalVessel, error) {
	const cols = 6
	var stored []domain.CanonicalVessel
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		args := make([]interface{}, 0, len(batch)*cols)
		for i := range batch {
			v := &batch[i]
			args = append(args, v.ID, v.NaturalKey, jsonOrEmpty(v.Attributes), v.SourceDocumentID, v.Version, v.UpdatedAt)
		}
		query := `INSERT INTO ` + quoted + ` (id, natural_key, attributes, source_document_id, version, updated_at)
			VALUES ` + valuesClause(len(batch), cols) + "\n\t\t" + onConflict

		var got []domain.CanonicalVessel
		if err := sqlx.SelectContext(ctx, r.db, &got, query, args...); err != nil {
			return nil, err
		}
		stored = append(stored, got...)
	}
	return stored, nil
}
