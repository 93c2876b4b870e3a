package service_test

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oceanid/internal/domain"
	"oceanid/internal/port"
	"oceanid/internal/service"
)

type snapshotJSON struct {
	Keys []string                 `json:"keys"`
	Rows []domain.CanonicalVessel `json:"rows"`
}

func promotionFixture() (*fixture, service.PromotionService) {
	f := newFixture()
	svc := service.NewPromotionService(f.repos(), f.tx, f.locker, service.PromotionConfig{
		TargetTables:  []string{"vessels", "vessels_staging"},
		DefaultTarget: "vessels",
	}, zap.NewNop())
	return f, svc
}

// expectLock grants the promotion lock for docID and reports whether it was released.
func expectLock(f *fixture, docID uuid.UUID) *bool {
	released := new(bool)
	unlock := port.Unlock(func(context.Context) error {
		*released = true
		return nil
	})
	f.locker.On("TryLock", mock.Anything, "promotion:document:"+docID.String()).Return(unlock, nil)
	return released
}

func cleanCell(docID uuid.UUID, row int, column string, value *string) domain.Extraction {
	return domain.Extraction{
		ID:           uuid.New(),
		DocumentID:   docID,
		RowIndex:     row,
		ColumnName:   column,
		CleanedValue: value,
		Confidence:   1,
		Similarity:   1,
	}
}

func TestPromotionService_Promote(t *testing.T) {
	f, svc := promotionFixture()
	doc := &domain.Document{
		ID: uuid.New(), SourceName: "DNK", Status: domain.DocumentStatusReviewed,
		Columns: []string{"NAME", "IMO"}, RowCount: 2,
	}
	approved := domain.ReviewStatusApproved
	corrected := cleanCell(doc.ID, 1, "IMO", strPtr(""))
	corrected.ReviewStatus = &approved
	extractions := []domain.Extraction{
		cleanCell(doc.ID, 0, "NAME", strPtr("Aurora")),
		cleanCell(doc.ID, 0, "IMO", strPtr("9074729")),
		cleanCell(doc.ID, 1, "NAME", strPtr("Borealis")),
		corrected,
	}
	existing := domain.CanonicalVessel{
		ID:         uuid.New(),
		NaturalKey: "IMO:9074729",
		Attributes: json.RawMessage(`{"IMO":"9074729","NAME":"AURORA"}`),
		Version:    2,
	}

	released := expectLock(f, doc.ID)
	f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
	f.promotions.On("HasActive", mock.Anything, doc.ID, "vessels").Return(false, nil)
	f.extractions.On("ListByDocument", mock.Anything, doc.ID).Return(extractions, nil)
	f.canonical.On("LockByKeys", mock.Anything, "vessels", []string{"IMO:9074729", "DNK:1"}).
		Return([]domain.CanonicalVessel{existing}, nil)

	stored := make([]domain.CanonicalVessel, 2)
	var written []domain.CanonicalVessel
	f.canonical.On("Upsert", mock.Anything, "vessels", mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(2).([]domain.CanonicalVessel)
			copy(stored, written)
			stored[0].Version = existing.Version + 1
		}).Return(stored, nil)

	var rec *domain.PromotionRecord
	f.promotions.On("Create", mock.Anything, mock.AnythingOfType("*domain.PromotionRecord")).
		Run(func(args mock.Arguments) { rec = args.Get(1).(*domain.PromotionRecord) }).Return(nil)
	f.docs.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusReviewed, domain.DocumentStatusPromoted).Return(nil)
	f.logs.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.ProcessingLogEntry) bool {
		return l.ToState == domain.DocumentStatusPromoted && l.Success
	})).Return(nil)

	got, err := svc.Promote(context.Background(), doc.ID, "")

	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.True(t, *released)

	require.Len(t, written, 2)
	assert.Equal(t, existing.ID, written[0].ID, "existing canonical rows keep their id")
	assert.Equal(t, "DNK:1", written[1].NaturalKey)
	var attrs map[string]*string
	require.NoError(t, json.Unmarshal(written[1].Attributes, &attrs))
	assert.Equal(t, "Borealis", *attrs["NAME"])

	assert.Equal(t, "vessels", got.TargetTable)
	assert.True(t, got.QualityChecksPassed)
	assert.False(t, got.RollbackCompleted)
	assert.True(t, sort.StringsAreSorted(got.TargetIDs))
	assert.ElementsMatch(t, []string{existing.ID.String(), written[1].ID.String()}, []string(got.TargetIDs))

	var before snapshotJSON
	require.NoError(t, json.Unmarshal(got.BeforeSnapshot, &before))
	assert.Equal(t, []string{"IMO:9074729", "DNK:1"}, before.Keys)
	require.Len(t, before.Rows, 1)
	assert.Equal(t, 2, before.Rows[0].Version)

	var after snapshotJSON
	require.NoError(t, json.Unmarshal(got.AfterSnapshot, &after))
	require.Len(t, after.Rows, 2)
	assert.Equal(t, 3, after.Rows[0].Version)
	f.docs.AssertExpectations(t)
}

func TestPromotionService_Promote_LockHeld(t *testing.T) {
	f, svc := promotionFixture()
	docID := uuid.New()
	f.locker.On("TryLock", mock.Anything, mock.Anything).Return(nil, domain.ErrPromotionConflict)

	_, err := svc.Promote(context.Background(), docID, "vessels")

	assert.ErrorIs(t, err, domain.ErrPromotionConflict)
	assert.Zero(t, f.tx.Calls)
}

func TestPromotionService_Promote_UnknownTarget(t *testing.T) {
	f, svc := promotionFixture()

	_, err := svc.Promote(context.Background(), uuid.New(), "vessels; DROP TABLE vessels")

	assert.ErrorIs(t, err, domain.ErrPromotionPrecondition)
	f.locker.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything)
}

func TestPromotionService_Promote_Preconditions(t *testing.T) {
	flagged := cleanCell(uuid.Nil, 0, "IMO", strPtr("1"))
	flagged.NeedsReview = true
	rejected := cleanCell(uuid.Nil, 0, "IMO", strPtr("1"))
	rs := domain.ReviewStatusRejected
	rejected.ReviewStatus = &rs

	tests := []struct {
		name        string
		status      domain.DocumentStatus
		active      bool
		extractions []domain.Extraction
		want        error
	}{
		{"queued for review", domain.DocumentStatusQueuedForReview, false, nil, domain.ErrPromotionPrecondition},
		{"already promoted", domain.DocumentStatusPromoted, false, nil, domain.ErrDocumentPromoted},
		{"active record", domain.DocumentStatusAutoPromotable, true, nil, domain.ErrAlreadyPromoted},
		{"flagged cell", domain.DocumentStatusReviewed, false, []domain.Extraction{flagged}, domain.ErrPromotionPrecondition},
		{"rejected cell", domain.DocumentStatusReviewed, false, []domain.Extraction{rejected}, domain.ErrPromotionPrecondition},
		{"no extractions", domain.DocumentStatusAutoPromotable, false, []domain.Extraction{}, domain.ErrPromotionPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, svc := promotionFixture()
			doc := &domain.Document{ID: uuid.New(), Status: tt.status, Columns: []string{"IMO"}, RowCount: 1}
			released := expectLock(f, doc.ID)
			f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
			f.promotions.On("HasActive", mock.Anything, doc.ID, "vessels").Return(tt.active, nil).Maybe()
			f.extractions.On("ListByDocument", mock.Anything, doc.ID).Return(tt.extractions, nil).Maybe()

			_, err := svc.Promote(context.Background(), doc.ID, "")

			assert.ErrorIs(t, err, tt.want)
			assert.True(t, *released)
			f.canonical.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
			f.docs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPromotionService_Promote_QualityCheckFails(t *testing.T) {
	f, svc := promotionFixture()
	doc := &domain.Document{
		ID: uuid.New(), SourceName: "DNK", Status: domain.DocumentStatusAutoPromotable,
		Columns: []string{"IMO"}, RowCount: 2,
	}
	expectLock(f, doc.ID)
	f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
	f.promotions.On("HasActive", mock.Anything, doc.ID, "vessels").Return(false, nil)
	f.extractions.On("ListByDocument", mock.Anything, doc.ID).Return([]domain.Extraction{
		cleanCell(doc.ID, 0, "IMO", strPtr("9074729")),
		cleanCell(doc.ID, 1, "IMO", strPtr("9321483")),
	}, nil)
	f.canonical.On("LockByKeys", mock.Anything, "vessels", mock.Anything).Return([]domain.CanonicalVessel{}, nil)
	f.canonical.On("Upsert", mock.Anything, "vessels", mock.Anything).Return([]domain.CanonicalVessel{{
		ID:         uuid.New(),
		NaturalKey: "IMO:9074729",
		Attributes: json.RawMessage(`{"IMO":"9074729"}`),
	}}, nil)

	_, err := svc.Promote(context.Background(), doc.ID, "vessels")

	assert.ErrorIs(t, err, domain.ErrPromotionPrecondition)
	f.promotions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPromotionService_Promote_DuplicateKeysCollapse(t *testing.T) {
	f, svc := promotionFixture()
	doc := &domain.Document{
		ID: uuid.New(), Status: domain.DocumentStatusAutoPromotable,
		Columns: []string{"IMO", "NAME"}, RowCount: 4,
	}
	expectLock(f, doc.ID)
	f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
	f.promotions.On("HasActive", mock.Anything, doc.ID, "vessels").Return(false, nil)
	f.extractions.On("ListByDocument", mock.Anything, doc.ID).Return([]domain.Extraction{
		cleanCell(doc.ID, 0, "IMO", strPtr("9074729")),
		cleanCell(doc.ID, 0, "NAME", strPtr("Aurora")),
		cleanCell(doc.ID, 3, "IMO", strPtr("9074729")),
		cleanCell(doc.ID, 3, "NAME", strPtr("Aurora II")),
	}, nil)
	f.canonical.On("LockByKeys", mock.Anything, "vessels", []string{"IMO:9074729"}).Return([]domain.CanonicalVessel{}, nil)

	stored := make([]domain.CanonicalVessel, 1)
	var written []domain.CanonicalVessel
	f.canonical.On("Upsert", mock.Anything, "vessels", mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(2).([]domain.CanonicalVessel)
			copy(stored, written)
		}).Return(stored, nil)
	f.promotions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.docs.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusAutoPromotable, domain.DocumentStatusPromoted).Return(nil)
	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	rec, err := svc.Promote(context.Background(), doc.ID, "")

	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.JSONEq(t, `{"IMO":"9074729","NAME":"Aurora II"}`, string(written[0].Attributes))
	assert.Len(t, rec.TargetIDs, 1)
}

func TestPromotionService_Promote_IgnoresStaleCells(t *testing.T) {
	f, svc := promotionFixture()
	doc := &domain.Document{
		ID: uuid.New(), Status: domain.DocumentStatusReviewed,
		Columns: []string{"IMO", "NAME"}, RowCount: 1,
	}
	approved := domain.ReviewStatusApproved
	staleRow := cleanCell(doc.ID, 4, "IMO", strPtr("9321483"))
	staleRow.ReviewStatus = &approved
	droppedColumn := cleanCell(doc.ID, 0, "CALLSIGN", strPtr("OXYZ"))
	droppedColumn.ReviewStatus = &approved

	expectLock(f, doc.ID)
	f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
	f.promotions.On("HasActive", mock.Anything, doc.ID, "vessels").Return(false, nil)
	f.extractions.On("ListByDocument", mock.Anything, doc.ID).Return([]domain.Extraction{
		cleanCell(doc.ID, 0, "IMO", strPtr("9074729")),
		droppedColumn,
		cleanCell(doc.ID, 0, "NAME", strPtr("Aurora")),
		staleRow,
	}, nil)
	f.canonical.On("LockByKeys", mock.Anything, "vessels", []string{"IMO:9074729"}).Return([]domain.CanonicalVessel{}, nil)

	stored := make([]domain.CanonicalVessel, 1)
	var written []domain.CanonicalVessel
	f.canonical.On("Upsert", mock.Anything, "vessels", mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(2).([]domain.CanonicalVessel)
			copy(stored, written)
		}).Return(stored, nil)
	f.promotions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.docs.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusReviewed, domain.DocumentStatusPromoted).Return(nil)
	f.logs.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Promote(context.Background(), doc.ID, "")

	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.JSONEq(t, `{"IMO":"9074729","NAME":"Aurora"}`, string(written[0].Attributes))
}

func promotedRecord(t *testing.T, docID uuid.UUID, before snapshotJSON) *domain.PromotionRecord {
	t.Helper()
	raw, err := json.Marshal(before)
	require.NoError(t, err)
	return &domain.PromotionRecord{
		ID:             uuid.New(),
		DocumentID:     docID,
		TargetTable:    "vessels",
		TargetIDs:      []string{uuid.New().String()},
		BeforeSnapshot: raw,
		AfterSnapshot:  json.RawMessage(`{"keys":[],"rows":[]}`),
		Seq:            7,
		PromotedAt:     time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestPromotionService_Rollback(t *testing.T) {
	f, svc := promotionFixture()
	doc := &domain.Document{ID: uuid.New(), Status: domain.DocumentStatusPromoted}
	prior := domain.CanonicalVessel{
		ID:         uuid.New(),
		NaturalKey: "IMO:9074729",
		Attributes: json.RawMessage(`{"IMO":"9074729"}`),
		Version:    2,
		UpdatedAt:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	rec := promotedRecord(t, doc.ID, snapshotJSON{
		Keys: []string{"IMO:9074729", "DNK:1"},
		Rows: []domain.CanonicalVessel{prior},
	})

	released := expectLock(f, doc.ID)
	f.promotions.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)
	f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
	f.promotions.On("GetForUpdate", mock.Anything, rec.ID).Return(rec, nil)
	var calls []string
	f.canonical.On("LockByKeys", mock.Anything, "vessels", []string{"IMO:9074729", "DNK:1"}).
		Run(func(mock.Arguments) { calls = append(calls, "LockByKeys") }).
		Return([]domain.CanonicalVessel{}, nil)
	f.promotions.On("HasLaterOverlapping", mock.Anything, rec).
		Run(func(mock.Arguments) { calls = append(calls, "HasLaterOverlapping") }).
		Return(false, nil)
	f.canonical.On("DeleteByKeys", mock.Anything, "vessels", []string{"DNK:1"}).Return(nil)
	f.canonical.On("Restore", mock.Anything, "vessels", mock.MatchedBy(func(rows []domain.CanonicalVessel) bool {
		return len(rows) == 1 && rows[0].ID == prior.ID && rows[0].Version == 2 && rows[0].UpdatedAt.Equal(prior.UpdatedAt)
	})).Return(nil)
	f.promotions.On("MarkRolledBack", mock.Anything, rec.ID, mock.AnythingOfType("time.Time")).Return(nil)
	f.docs.On("UpdateStatus", mock.Anything, doc.ID, domain.DocumentStatusPromoted, domain.DocumentStatusReviewed).Return(nil)
	f.logs.On("Create", mock.Anything, mock.MatchedBy(func(l *domain.ProcessingLogEntry) bool {
		return l.FromState == domain.DocumentStatusPromoted && l.ToState == domain.DocumentStatusReviewed
	})).Return(nil)

	got, err := svc.Rollback(context.Background(), rec.ID)

	require.NoError(t, err)
	assert.True(t, got.RollbackCompleted)
	assert.NotNil(t, got.RolledBackAt)
	assert.True(t, *released)
	assert.Equal(t, []string{"LockByKeys", "HasLaterOverlapping"}, calls, "canonical rows are locked before the overlap check")
	f.canonical.AssertExpectations(t)
	f.docs.AssertExpectations(t)
}

func TestPromotionService_Rollback_Refused(t *testing.T) {
	tests := []struct {
		name       string
		rolledBack bool
		later      bool
		want       error
	}{
		{"already rolled back", true, false, domain.ErrAlreadyRolledBack},
		{"later overlapping promotion", false, true, domain.ErrRollbackBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, svc := promotionFixture()
			doc := &domain.Document{ID: uuid.New(), Status: domain.DocumentStatusPromoted}
			rec := promotedRecord(t, doc.ID, snapshotJSON{Keys: []string{"IMO:1"}})
			rec.RollbackCompleted = tt.rolledBack

			expectLock(f, doc.ID)
			f.promotions.On("GetByID", mock.Anything, rec.ID).Return(rec, nil)
			f.docs.On("GetForUpdate", mock.Anything, doc.ID, true).Return(doc, nil)
			f.promotions.On("GetForUpdate", mock.Anything, rec.ID).Return(rec, nil)
			f.canonical.On("LockByKeys", mock.Anything, "vessels", []string{"IMO:1"}).Return([]domain.CanonicalVessel{}, nil).Maybe()
			f.promotions.On("HasLaterOverlapping", mock.Anything, rec).Return(tt.later, nil).Maybe()

			_, err := svc.Rollback(context.Background(), rec.ID)

			assert.ErrorIs(t, err, tt.want)
			f.canonical.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
			f.canonical.AssertNotCalled(t, "DeleteByKeys", mock.Anything, mock.Anything, mock.Anything)
			f.promotions.AssertNotCalled(t, "MarkRolledBack", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPromotionService_Rollback_NotFound(t *testing.T) {
	f, svc := promotionFixture()
	id := uuid.New()
	f.promotions.On("GetByID", mock.Anything, id).Return(nil, domain.ErrPromotionNotFound)

	_, err := svc.Rollback(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrPromotionNotFound)
	f.locker.AssertNotCalled(t, "TryLock", mock.Anything, mock.Anything)
}
