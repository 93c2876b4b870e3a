package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// PromotionConfig holds the canonical targets promotions may write to.
type PromotionConfig struct {
	TargetTables  []string
	DefaultTarget string
}

// PromotionService defines the promotion pipeline contract.
type PromotionService interface {
	Promote(ctx context.Context, docID uuid.UUID, targetTable string) (*domain.PromotionRecord, error)
	Rollback(ctx context.Context, promotionID uuid.UUID) (*domain.PromotionRecord, error)
	GetByID(ctx context.Context, promotionID uuid.UUID) (*domain.PromotionRecord, error)
	List(ctx context.Context, docID *uuid.UUID, offset, limit int) ([]domain.PromotionRecord, int, error)
}

// canonicalSnapshot is the JSON stored in a promotion record. Keys lists every
// natural key the promotion touched; Rows holds those that existed.
type canonicalSnapshot struct {
	Keys []string                 `json:"keys"`
	Rows []domain.CanonicalVessel `json:"rows"`
}

type promotionService struct {
	repos  port.Repos
	tx     port.Transactor
	locker port.Locker
	cfg    PromotionConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewPromotionService creates a new PromotionService.
func NewPromotionService(repos port.Repos, tx port.Transactor, locker port.Locker, cfg PromotionConfig, logger *zap.Logger) PromotionService {
	if cfg.DefaultTarget == "" {
		cfg.DefaultTarget = domain.DefaultTargetTable
	}
	if len(cfg.TargetTables) == 0 {
		cfg.TargetTables = []string{cfg.DefaultTarget}
	}
	return &promotionService{
		repos:  repos,
		tx:     tx,
		locker: locker,
		cfg:    cfg,
		logger: logger.Named("promotion"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *promotionService) GetByID(ctx context.Context, promotionID uuid.UUID) (*domain.PromotionRecord, error) {
	return s.repos.Promotions.GetByID(ctx, promotionID)
}

func (s *promotionService) List(ctx context.Context, docID *uuid.UUID, offset, limit int) ([]domain.PromotionRecord, int, error) {
	return s.repos.Promotions.List(ctx, docID, offset, limit)
}

func (s *promotionService) resolveTarget(table string) (string, error) {
	if table == "" {
		return s.cfg.DefaultTarget, nil
	}
	for _, t := range s.cfg.TargetTables {
		if t == table {
			return table, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a promotion target", domain.ErrPromotionPrecondition, table)
}

func lockKey(docID uuid.UUID) string {
	return "promotion:document:" + docID.String()
}

// exclusive runs fn while holding the document's promotion lock.
func (s *promotionService) exclusive(ctx context.Context, docID uuid.UUID, fn func() error) error {
	unlock, err := s.locker.TryLock(ctx, lockKey(docID))
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("releasing promotion lock", zap.String("document_id", docID.String()), zap.Error(err))
		}
	}()
	return fn()
}

func (s *promotionService) Promote(ctx context.Context, docID uuid.UUID, targetTable string) (*domain.PromotionRecord, error) {
	table, err := s.resolveTarget(targetTable)
	if err != nil {
		return nil, err
	}

	var rec *domain.PromotionRecord
	err = s.exclusive(ctx, docID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
			var err error
			rec, err = s.promote(ctx, repos, docID, table)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("promotionService.Promote: %w", err)
	}

	s.logger.Info("document promoted",
		zap.String("document_id", docID.String()),
		zap.String("promotion_id", rec.ID.String()),
		zap.String("target", table),
		zap.Int("rows", len(rec.TargetIDs)),
	)
	return rec, nil
}

func (s *promotionService) promote(ctx context.Context, repos port.Repos, docID uuid.UUID, table string) (*domain.PromotionRecord, error) {
	doc, err := repos.Documents.GetForUpdate(ctx, docID, true)
	if err != nil {
		return nil, err
	}
	if doc.Status == domain.DocumentStatusPromoted {
		return nil, domain.ErrDocumentPromoted
	}
	if !doc.Status.IsPromotable() {
		return nil, fmt.Errorf("%w: document is %s", domain.ErrPromotionPrecondition, doc.Status)
	}
	active, err := repos.Promotions.HasActive(ctx, docID, table)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrAlreadyPromoted
	}

	extractions, err := repos.Extractions.ListByDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	extractions = currentExtractions(doc, extractions)
	if len(extractions) == 0 {
		return nil, fmt.Errorf("%w: document has no extractions", domain.ErrPromotionPrecondition)
	}
	var blocked int
	for i := range extractions {
		if !extractions[i].Promotable() {
			blocked++
		}
	}
	if blocked > 0 {
		return nil, fmt.Errorf("%w: %d extraction(s) flagged or rejected", domain.ErrPromotionPrecondition, blocked)
	}

	rows, err := buildCanonicalRows(doc, extractions)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(rows))
	for i := range rows {
		keys[i] = rows[i].NaturalKey
	}

	before, err := repos.Canonical.LockByKeys(ctx, table, keys)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]domain.CanonicalVessel, len(before))
	for _, b := range before {
		existing[b.NaturalKey] = b
	}
	for i := range rows {
		if prev, ok := existing[rows[i].NaturalKey]; ok {
			rows[i].ID = prev.ID
		}
	}

	after, err := repos.Canonical.Upsert(ctx, table, rows)
	if err != nil {
		return nil, err
	}
	if err := qualityCheck(keys, after); err != nil {
		return nil, err
	}

	beforeJSON, err := json.Marshal(canonicalSnapshot{Keys: keys, Rows: before})
	if err != nil {
		return nil, fmt.Errorf("encoding before snapshot: %w", err)
	}
	afterJSON, err := json.Marshal(canonicalSnapshot{Keys: keys, Rows: after})
	if err != nil {
		return nil, fmt.Errorf("encoding after snapshot: %w", err)
	}
	targetIDs := make(pq.StringArray, len(after))
	for i := range after {
		targetIDs[i] = after[i].ID.String()
	}
	sort.Strings(targetIDs)

	rec := &domain.PromotionRecord{
		ID:                  uuid.New(),
		DocumentID:          docID,
		TargetTable:         table,
		TargetIDs:           targetIDs,
		BeforeSnapshot:      beforeJSON,
		AfterSnapshot:       afterJSON,
		QualityChecksPassed: true,
	}
	if err := repos.Promotions.Create(ctx, rec); err != nil {
		return nil, err
	}
	if err := repos.Documents.UpdateStatus(ctx, docID, doc.Status, domain.DocumentStatusPromoted); err != nil {
		return nil, err
	}
	if err := appendLog(ctx, repos, docID, doc.Status, domain.DocumentStatusPromoted, true, map[string]interface{}{
		"promotion_id": rec.ID,
		"target":       table,
		"rows":         len(after),
		"inserted":     len(after) - len(before),
		"updated":      len(before),
	}, ""); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *promotionService) Rollback(ctx context.Context, promotionID uuid.UUID) (*domain.PromotionRecord, error) {
	found, err := s.repos.Promotions.GetByID(ctx, promotionID)
	if err != nil {
		return nil, fmt.Errorf("promotionService.Rollback: %w", err)
	}

	var rec *domain.PromotionRecord
	err = s.exclusive(ctx, found.DocumentID, func() error {
		return s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
			var err error
			rec, err = s.rollback(ctx, repos, found.DocumentID, promotionID)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("promotionService.Rollback: %w", err)
	}

	s.logger.Info("promotion rolled back",
		zap.String("document_id", rec.DocumentID.String()),
		zap.String("promotion_id", rec.ID.String()),
		zap.String("target", rec.TargetTable),
	)
	return rec, nil
}

func (s *promotionService) rollback(ctx context.Context, repos port.Repos, docID, promotionID uuid.UUID) (*domain.PromotionRecord, error) {
	doc, err := repos.Documents.GetForUpdate(ctx, docID, true)
	if err != nil {
		return nil, err
	}
	rec, err := repos.Promotions.GetForUpdate(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if rec.RollbackCompleted {
		return nil, domain.ErrAlreadyRolledBack
	}

	var before canonicalSnapshot
	if err := json.Unmarshal(rec.BeforeSnapshot, &before); err != nil {
		return nil, fmt.Errorf("decoding before snapshot: %w", err)
	}
	// a promotion still holding these rows commits before the lock is
	// granted, so the overlap check below sees its record
	if _, err := repos.Canonical.LockByKeys(ctx, rec.TargetTable, before.Keys); err != nil {
		return nil, err
	}
	later, err := repos.Promotions.HasLaterOverlapping(ctx, rec)
	if err != nil {
		return nil, err
	}
	if later {
		return nil, domain.ErrRollbackBlocked
	}

	present := make(map[string]bool, len(before.Rows))
	for _, r := range before.Rows {
		present[r.NaturalKey] = true
	}
	var absent []string
	for _, k := range before.Keys {
		if !present[k] {
			absent = append(absent, k)
		}
	}
	if err := repos.Canonical.DeleteByKeys(ctx, rec.TargetTable, absent); err != nil {
		return nil, err
	}
	if len(before.Rows) > 0 {
		if err := repos.Canonical.Restore(ctx, rec.TargetTable, before.Rows); err != nil {
			return nil, err
		}
	}

	at := s.now()
	if err := repos.Promotions.MarkRolledBack(ctx, rec.ID, at); err != nil {
		return nil, err
	}
	rec.RollbackCompleted = true
	rec.RolledBackAt = &at

	to := doc.Status
	if doc.Status == domain.DocumentStatusPromoted {
		to = domain.DocumentStatusReviewed
		if err := repos.Documents.UpdateStatus(ctx, docID, doc.Status, to); err != nil {
			return nil, err
		}
	}
	if err := appendLog(ctx, repos, docID, doc.Status, to, true, map[string]interface{}{
		"promotion_id": rec.ID,
		"restored":     len(before.Rows),
		"deleted":      len(absent),
	}, "promotion rolled back"); err != nil {
		return nil, err
	}
	return rec, nil
}

// currentExtractions drops cells outside the document's latest parse. A
// reviewed cell survives reprocessing even when its row or column is gone.
func currentExtractions(doc *domain.Document, extractions []domain.Extraction) []domain.Extraction {
	cols := make(map[string]bool, len(doc.Columns))
	for _, c := range doc.Columns {
		cols[c] = true
	}
	out := extractions[:0:0]
	for _, e := range extractions {
		if e.RowIndex < doc.RowCount && cols[e.ColumnName] {
			out = append(out, e)
		}
	}
	return out
}

// buildCanonicalRows groups a document's extractions into one canonical row
// per source row. Rows sharing a natural key collapse onto the last one.
func buildCanonicalRows(doc *domain.Document, extractions []domain.Extraction) ([]domain.CanonicalVessel, error) {
	byRow := make(map[int]map[string]*string)
	var order []int
	for i := range extractions {
		e := &extractions[i]
		attrs, ok := byRow[e.RowIndex]
		if !ok {
			attrs = make(map[string]*string)
			byRow[e.RowIndex] = attrs
			order = append(order, e.RowIndex)
		}
		attrs[e.ColumnName] = e.CleanedValue
	}
	sort.Ints(order)

	pos := make(map[string]int)
	var rows []domain.CanonicalVessel
	for _, idx := range order {
		attrs := byRow[idx]
		raw, err := json.Marshal(attrs)
		if err != nil {
			return nil, fmt.Errorf("encoding attributes for row %d: %w", idx, err)
		}
		row := domain.CanonicalVessel{
			ID:               uuid.New(),
			NaturalKey:       naturalKey(doc, idx, attrs),
			Attributes:       raw,
			SourceDocumentID: doc.ID,
			Version:          1,
		}
		if p, ok := pos[row.NaturalKey]; ok {
			rows[p] = row
			continue
		}
		pos[row.NaturalKey] = len(rows)
		rows = append(rows, row)
	}
	return rows, nil
}

// naturalKey identifies a vessel by IMO number, then MMSI, then by its
// position in the source document.
func naturalKey(doc *domain.Document, rowIndex int, attrs map[string]*string) string {
	for _, col := range []string{"IMO", "MMSI"} {
		if v := attrs[col]; v != nil && strings.TrimSpace(*v) != "" {
			return col + ":" + strings.TrimSpace(*v)
		}
	}
	source := doc.SourceName
	if source == "" {
		source = doc.ID.String()
	}
	return fmt.Sprintf("%s:%d", source, rowIndex)
}

// qualityCheck verifies that the store returned exactly one row per key.
func qualityCheck(keys []string, after []domain.CanonicalVessel) error {
	if len(after) != len(keys) {
		return fmt.Errorf("%w: quality check failed: wrote %d rows for %d keys", domain.ErrPromotionPrecondition, len(after), len(keys))
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	for _, r := range after {
		if !want[r.NaturalKey] {
			return fmt.Errorf("%w: quality check failed: unexpected key %q", domain.ErrPromotionPrecondition, r.NaturalKey)
		}
		if len(r.Attributes) == 0 {
			return fmt.Errorf("%w: quality check failed: empty attributes for %q", domain.ErrPromotionPrecondition, r.NaturalKey)
		}
		delete(want, r.NaturalKey)
	}
	return nil
}
