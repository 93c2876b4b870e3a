package postgres_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/domain"
	"oceanid/internal/port"
	"oceanid/internal/repository/postgres"
)

func TestExtractionRepo_UpsertBatch_PreservesDecidedRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewExtractionRepo(db)
	docID := uuid.New()
	cleaned := "KORSHAVN"

	mock.ExpectExec(regexp.QuoteMeta(
		"ON CONFLICT (document_id, row_index, column_name) DO UPDATE SET") +
		".*" + regexp.QuoteMeta("WHERE extractions.review_status IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	batch := []domain.Extraction{
		{DocumentID: docID, RowIndex: 0, ColumnName: "VESSEL_NAME", RawValue: `"Korshavn`, CleanedValue: &cleaned,
			RuleChain: pq.Int64Array{3}, Confidence: 0.9, Similarity: 0.88, NeedsReview: true,
			ReviewReasons: pq.StringArray{domain.ReasonLowConfidence}},
		{DocumentID: docID, RowIndex: 0, ColumnName: "IMO", RawValue: "9074729", CleanedValue: strPtr("9074729"),
			RuleChain: pq.Int64Array{}, Confidence: 1, Similarity: 1, ReviewReasons: pq.StringArray{}},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), batch))
	for _, e := range batch {
		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_UpsertBatch_Chunks(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewExtractionRepo(db)
	docID := uuid.New()

	batch := make([]domain.Extraction, 501)
	for i := range batch {
		batch[i] = domain.Extraction{DocumentID: docID, RowIndex: i, ColumnName: "IMO", Confidence: 1, Similarity: 1}
	}
	mock.ExpectExec("INSERT INTO extractions").WillReturnResult(sqlmock.NewResult(0, 500))
	mock.ExpectExec("INSERT INTO extractions").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpsertBatch(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_RecordDecision_LosesRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewExtractionRepo(db)
	status := domain.ReviewStatusApproved
	now := time.Now().UTC()
	e := &domain.Extraction{ID: uuid.New(), ReviewStatus: &status, ReviewedBy: strPtr("ana"), ReviewedAt: &now}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND review_status IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordDecision(context.Background(), e)
	assert.ErrorIs(t, err, domain.ErrReviewDecisionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_ListPending_OrdersByConfidence(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewExtractionRepo(db)
	docID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM extractions e JOIN documents d")).
		WithArgs(domain.DocumentStatusRejected, docID, "IMO").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY e.confidence ASC, e.document_id, e.row_index, e.column_name LIMIT $4 OFFSET $5")).
		WithArgs(domain.DocumentStatusRejected, docID, "IMO", 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "row_index", "column_name", "raw_value", "cleaned_value",
			"rule_chain", "confidence", "similarity", "needs_review", "review_reasons", "review_status"}).
			AddRow(uuid.New().String(), docID.String(), 4, "IMO", "907472", nil,
				"{}", 0.0, 0.0, true, `{"validation failed: imo_checksum (checksum)"}`, nil))

	got, total, err := repo.ListPending(context.Background(), port.ReviewFilter{DocumentID: &docID, ColumnName: "IMO", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].CleanedValue)
	assert.Nil(t, got[0].ReviewStatus)
	assert.Equal(t, domain.ReviewStatusNone, got[0].Decision())
	assert.Equal(t, []string{"validation failed: imo_checksum (checksum)"}, []string(got[0].ReviewReasons))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtractionRepo_PruneRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewExtractionRepo(db)
	docID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("(row_index >= $2 OR NOT (column_name = ANY($3::text[])))")).
		WithArgs(docID, 10, `{"IMO","NAME"}`).
		WillReturnResult(sqlmock.NewResult(0, 6))

	n, err := repo.PruneRows(context.Background(), docID, 10, []string{"IMO", "NAME"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
