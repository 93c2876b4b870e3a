package postgres_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/domain"
	"oceanid/internal/repository/postgres"
)

func TestCanonicalRepo_RejectsUnsafeTableName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewCanonicalRepo(db)

	_, err := repo.LockByKeys(context.Background(), "vessels; DROP TABLE documents", []string{"IMO:9074729"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonicalRepo_Upsert_BumpsVersionOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewCanonicalRepo(db)
	id := uuid.New()
	docID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "vessels"`) + ".*" +
		regexp.QuoteMeta(`version = "vessels".version + 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "natural_key", "attributes", "source_document_id", "version", "updated_at"}).
			AddRow(id.String(), "IMO:9074729", []byte(`{"VESSEL_NAME":"KORSHAVN"}`), docID.String(), 2, now))

	rows, err := repo.Upsert(context.Background(), "vessels", []domain.CanonicalVessel{{
		ID:               uuid.New(),
		NaturalKey:       "IMO:9074729",
		Attributes:       json.RawMessage(`{"VESSEL_NAME":"KORSHAVN"}`),
		SourceDocumentID: docID,
	}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ID)
	assert.Equal(t, 2, rows[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonicalRepo_DeleteByKeys_NoKeys(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewCanonicalRepo(db)

	require.NoError(t, repo.DeleteByKeys(context.Background(), "vessels", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCanonicalRepo_LockByKeys(t *testing.T) {
	db, mock := newMockDB(t)
	repo := postgres.NewCanonicalRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`natural_key = ANY($1::text[]) ORDER BY natural_key FOR UPDATE`)).
		WithArgs(`{"IMO:9074729","MMSI:257123450"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "natural_key"}))

	rows, err := repo.LockByKeys(context.Background(), "vessels", []string{"IMO:9074729", "MMSI:257123450"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
