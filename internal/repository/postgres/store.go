package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"oceanid/internal/port"
)

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store over db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories that run outside any transaction.
func (s *Store) Repos() port.Repos {
	return reposFor(s.db)
}

// WithinTx runs fn in a single transaction, committing on nil and rolling back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.Repos) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store.WithinTx begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, reposFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("store.WithinTx rollback: %v (after %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store.WithinTx commit: %w", err)
	}
	return nil
}

func reposFor(db sqlx.ExtContext) port.Repos {
	return port.Repos{
		Documents:        NewDocumentRepo(db),
		ProcessingLogs:   NewProcessingLogRepo(db),
		RowRepairs:       NewRowRepairRepo(db),
		Extractions:      NewExtractionRepo(db),
		TrainingExamples: NewTrainingExampleRepo(db),
		Promotions:       NewPromotionRepo(db),
		Canonical:        NewCanonicalRepo(db),
	}
}
