package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"oceanid/internal/domain"
	"oceanid/internal/parser"
	"oceanid/internal/port"
	"oceanid/internal/rules"
	"oceanid/internal/scoring"
)

// IngestConfig holds per-document processing settings.
type IngestConfig struct {
	RowParallelism int
	BatchSize      int
}

// IngestResult summarizes one processing run.
type IngestResult struct {
	Rows    int                   `json:"rows"`
	Cells   int                   `json:"cells"`
	Flagged int                   `json:"flagged"`
	Repairs int                   `json:"repairs"`
	Status  domain.DocumentStatus `json:"status"`
}

// IngestService parses, cleans, scores and stages one document.
type IngestService interface {
	// Process runs the document from its current state to auto_promotable or
	// queued_for_review. Failures are recorded on the document before returning.
	Process(ctx context.Context, doc *domain.Document) (*IngestResult, error)
}

// RuleSource hands out the rule snapshot for a run.
type RuleSource interface {
	Current() (*rules.Snapshot, error)
}

type ingestService struct {
	repos   port.Repos
	tx      port.Transactor
	storage port.SourceStorage
	rules   RuleSource
	policy  scoring.Policy
	cfg     IngestConfig
	logger  *zap.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	repos port.Repos,
	tx port.Transactor,
	storage port.SourceStorage,
	ruleSource RuleSource,
	policy scoring.Policy,
	cfg IngestConfig,
	logger *zap.Logger,
) IngestService {
	if cfg.RowParallelism < 1 {
		cfg.RowParallelism = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 500
	}
	return &ingestService{
		repos:   repos,
		tx:      tx,
		storage: storage,
		rules:   ruleSource,
		policy:  policy,
		cfg:     cfg,
		logger:  logger.Named("ingest"),
	}
}

// stagedRow is the outcome of cleaning one record.
type stagedRow struct {
	extractions []domain.Extraction
	repairs     []domain.RowRepair
	flagged     int
}

func (s *ingestService) Process(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	if !doc.Status.IsReprocessable() && doc.Status != domain.DocumentStatusParsed {
		return nil, fmt.Errorf("%w: cannot process a %s document", domain.ErrInvalidTransition, doc.Status)
	}
	start := time.Now()
	log := s.logger.With(zap.String("document_id", doc.ID.String()), zap.String("file", doc.FileName))

	res, err := s.process(ctx, doc, log)
	if err != nil {
		log.Error("processing failed", zap.Error(err), zap.Int("attempt", doc.Attempts))
		s.recordFailure(context.WithoutCancel(ctx), doc, err)
		return nil, err
	}

	log.Info("document processed",
		zap.Int("rows", res.Rows),
		zap.Int("cells", res.Cells),
		zap.Int("flagged", res.Flagged),
		zap.Int("repairs", res.Repairs),
		zap.String("status", string(res.Status)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (s *ingestService) process(ctx context.Context, doc *domain.Document, log *zap.Logger) (*IngestResult, error) {
	snap, err := s.rules.Current()
	if err != nil {
		return nil, fmt.Errorf("ingestService.Process: %w", err)
	}

	columns, delim, records, err := s.read(ctx, doc)
	if err != nil {
		return nil, err
	}

	doc.Delimiter = string(delim)
	doc.Columns = pq.StringArray(columns)
	doc.ExpectedFields = len(columns)
	doc.RowCount = len(records)
	if err := s.markParsed(ctx, doc); err != nil {
		return nil, err
	}
	log.Debug("document parsed", zap.Int("rows", len(records)), zap.Int("columns", len(columns)))

	result := &IngestResult{Rows: len(records)}
	var repairs []domain.RowRepair
	for start := 0; start < len(records); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		staged, err := s.cleanBatch(ctx, snap, doc, columns, records[start:end])
		if err != nil {
			return nil, err
		}

		var batch []domain.Extraction
		for _, row := range staged {
			batch = append(batch, row.extractions...)
			repairs = append(repairs, row.repairs...)
			result.Flagged += row.flagged
		}
		if err := s.repos.Extractions.UpsertBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("ingestService.Process: %w", err)
		}
		result.Cells += len(batch)
	}
	result.Repairs = len(repairs)

	if err := s.finish(ctx, doc, repairs, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ingestService) read(ctx context.Context, doc *domain.Document) ([]string, rune, []parser.Record, error) {
	rc, err := s.storage.Open(ctx, doc.SourceKey)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("ingestService.read: %w", err)
	}
	defer rc.Close()

	src, err := parser.Open(rc, doc.FileName, doc.Delimiter)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("ingestService.read: %w", err)
	}
	defer src.Close()

	records, err := parser.ReadAll(src)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("ingestService.read: %w", err)
	}
	return src.Columns(), src.Delimiter(), records, nil
}

func (s *ingestService) markParsed(ctx context.Context, doc *domain.Document) error {
	from := doc.Status
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		if err := repos.Documents.UpdateParseResult(ctx, doc); err != nil {
			return err
		}
		if from != domain.DocumentStatusParsed {
			if err := repos.Documents.UpdateStatus(ctx, doc.ID, from, domain.DocumentStatusParsed); err != nil {
				return err
			}
		}
		return appendLog(ctx, repos, doc.ID, from, domain.DocumentStatusParsed, true, map[string]interface{}{
			"rows":      doc.RowCount,
			"columns":   doc.ExpectedFields,
			"delimiter": doc.Delimiter,
		}, "")
	})
	if err != nil {
		return fmt.Errorf("ingestService.markParsed: %w", err)
	}
	doc.Status = domain.DocumentStatusParsed
	return nil
}

// cleanBatch cleans records in parallel. Results keep record order.
func (s *ingestService) cleanBatch(ctx context.Context, snap *rules.Snapshot, doc *domain.Document, columns []string, records []parser.Record) ([]stagedRow, error) {
	out := make([]stagedRow, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.RowParallelism)
	for i := range records {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.cleanRow(snap, doc, columns, records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingestService.cleanBatch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestService.cleanBatch: %w", err)
	}
	return out, nil
}

func (s *ingestService) cleanRow(snap *rules.Snapshot, doc *domain.Document, columns []string, rec parser.Record) stagedRow {
	row := rec.Row
	fields, merged := snap.MergeRow(columns, row.Fields, doc.SourceType, doc.SourceName)
	for _, id := range merged {
		row.AddRepair(parser.Repair{
			Kind:     domain.RepairFieldMerger,
			Severity: domain.SeverityMedium,
			Detail:   fmt.Sprintf("merged by rule %d", id),
		})
	}

	staged := stagedRow{extractions: make([]domain.Extraction, 0, len(columns))}
	for c, col := range columns {
		raw := fields[c]
		res := snap.Clean(raw, rules.CellContext{SourceType: doc.SourceType, SourceName: doc.SourceName, Column: col})
		a := s.policy.Assess(raw, res, row)
		if a.NeedsReview {
			staged.flagged++
		}
		chain := res.RuleChain
		if chain == nil {
			chain = []int64{}
		}
		reasons := a.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		staged.extractions = append(staged.extractions, domain.Extraction{
			DocumentID:    doc.ID,
			RowIndex:      rec.Index,
			ColumnName:    col,
			RawValue:      raw,
			CleanedValue:  res.Value,
			RuleChain:     pq.Int64Array(chain),
			Confidence:    a.Confidence,
			Similarity:    a.Similarity,
			NeedsReview:   a.NeedsReview,
			ReviewReasons: pq.StringArray(reasons),
		})
	}
	for _, rp := range row.Repairs {
		staged.repairs = append(staged.repairs, domain.RowRepair{
			DocumentID: doc.ID,
			RowIndex:   rec.Index,
			Kind:       rp.Kind,
			Severity:   rp.Severity,
			Position:   rp.Position,
			Detail:     rp.Detail,
		})
	}
	return staged
}

// finish records repairs, drops stale rows and routes the document.
func (s *ingestService) finish(ctx context.Context, doc *domain.Document, repairs []domain.RowRepair, result *IngestResult) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		if err := repos.RowRepairs.ReplaceForDocument(ctx, doc.ID, repairs); err != nil {
			return err
		}
		if _, err := repos.Extractions.PruneRows(ctx, doc.ID, doc.RowCount, doc.Columns); err != nil {
			return err
		}
		if err := repos.Documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusParsed, domain.DocumentStatusCleaned); err != nil {
			return err
		}
		if err := appendLog(ctx, repos, doc.ID, domain.DocumentStatusParsed, domain.DocumentStatusCleaned, true, map[string]interface{}{
			"cells":   result.Cells,
			"repairs": result.Repairs,
		}, ""); err != nil {
			return err
		}

		// decisions kept from an earlier run still count
		undecided, err := repos.Extractions.CountUndecided(ctx, doc.ID)
		if err != nil {
			return err
		}
		next := domain.DocumentStatusAutoPromotable
		if undecided > 0 {
			next = domain.DocumentStatusQueuedForReview
		}
		if err := repos.Documents.UpdateStatus(ctx, doc.ID, domain.DocumentStatusCleaned, next); err != nil {
			return err
		}
		result.Status = next
		return appendLog(ctx, repos, doc.ID, domain.DocumentStatusCleaned, next, true, map[string]interface{}{
			"flagged":   result.Flagged,
			"undecided": undecided,
		}, "")
	})
	if err != nil {
		return fmt.Errorf("ingestService.finish: %w", err)
	}
	doc.Status = result.Status
	return nil
}

func (s *ingestService) recordFailure(ctx context.Context, doc *domain.Document, cause error) {
	if err := s.repos.Documents.RecordFailure(ctx, doc.ID, cause.Error()); err != nil {
		s.logger.Error("recording failure", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	if err := appendLog(ctx, s.repos, doc.ID, doc.Status, doc.Status, false, map[string]interface{}{
		"attempt": doc.Attempts,
	}, cause.Error()); err != nil {
		s.logger.Error("writing failure log entry", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
}

// appendLog writes one processing log entry.
func appendLog(ctx context.Context, repos port.Repos, docID uuid.UUID, from, to domain.DocumentStatus, success bool, metrics map[string]interface{}, message string) error {
	raw, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}
	return repos.ProcessingLogs.Create(ctx, &domain.ProcessingLogEntry{
		DocumentID: docID,
		FromState:  from,
		ToState:    to,
		Success:    success,
		Metrics:    raw,
		Message:    message,
	})
}
