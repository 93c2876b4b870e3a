package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// DecisionInput is the DTO for a reviewer's decision on one extraction.
type DecisionInput struct {
	ExtractionID   uuid.UUID
	Decision       domain.ReviewStatus
	CorrectedValue *string
	CorrectionType domain.CorrectionType
	Annotator      string
}

// ReviewService defines the review queue contract.
type ReviewService interface {
	ListPending(ctx context.Context, filter port.ReviewFilter) ([]domain.Extraction, int, error)
	RecordDecision(ctx context.Context, input *DecisionInput) (*domain.Extraction, error)
	ListTrainingExamples(ctx context.Context, offset, limit int) ([]domain.TrainingExample, int, error)
}

type reviewService struct {
	repos  port.Repos
	tx     port.Transactor
	logger *zap.Logger
	now    func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(repos port.Repos, tx port.Transactor, logger *zap.Logger) ReviewService {
	return &reviewService{
		repos:  repos,
		tx:     tx,
		logger: logger.Named("review"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) ListPending(ctx context.Context, filter port.ReviewFilter) ([]domain.Extraction, int, error) {
	return s.repos.Extractions.ListPending(ctx, filter)
}

func (s *reviewService) ListTrainingExamples(ctx context.Context, offset, limit int) ([]domain.TrainingExample, int, error) {
	return s.repos.TrainingExamples.List(ctx, offset, limit)
}

// normalize validates the input and resolves approved-with-value into corrected.
func (in *DecisionInput) normalize() error {
	in.Annotator = strings.TrimSpace(in.Annotator)
	if in.Annotator == "" {
		return fmt.Errorf("%w: annotator is required", domain.ErrInvalidDecision)
	}
	if !domain.ValidReviewStatuses[in.Decision] {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDecision, in.Decision)
	}
	if in.Decision == domain.ReviewStatusApproved && in.CorrectedValue != nil {
		in.Decision = domain.ReviewStatusCorrected
	}
	switch in.Decision {
	case domain.ReviewStatusCorrected:
		if in.CorrectedValue == nil {
			return domain.ErrCorrectionValueRequired
		}
		if in.CorrectionType == "" {
			in.CorrectionType = domain.CorrectionValueFix
		}
		if !domain.ValidCorrectionTypes[in.CorrectionType] {
			return fmt.Errorf("%w: correction type %q", domain.ErrInvalidDecision, in.CorrectionType)
		}
	case domain.ReviewStatusRejected:
		if in.CorrectedValue != nil {
			return fmt.Errorf("%w: a rejection cannot carry a corrected value", domain.ErrInvalidDecision)
		}
	}
	return nil
}

// sameDecision reports whether e already carries exactly the decision in.
func sameDecision(e *domain.Extraction, in *DecisionInput) bool {
	if e.Decision() != in.Decision {
		return false
	}
	if in.Decision != domain.ReviewStatusCorrected {
		return true
	}
	return e.CleanedValue != nil && *e.CleanedValue == *in.CorrectedValue
}

func (s *reviewService) RecordDecision(ctx context.Context, input *DecisionInput) (*domain.Extraction, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	current, err := s.repos.Extractions.GetByID(ctx, input.ExtractionID)
	if err != nil {
		return nil, err
	}

	var result *domain.Extraction
	var docMoved bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		// document first, then extraction: the same order promotion locks in
		doc, err := repos.Documents.GetForUpdate(ctx, current.DocumentID, false)
		if err != nil {
			return err
		}
		switch doc.Status {
		case domain.DocumentStatusPromoted:
			return domain.ErrExtractionLocked
		case domain.DocumentStatusRejected:
			return fmt.Errorf("%w: document %s is rejected", domain.ErrInvalidTransition, doc.ID)
		}

		e, err := repos.Extractions.GetForUpdate(ctx, input.ExtractionID)
		if err != nil {
			return err
		}
		if e.Decision() != domain.ReviewStatusNone {
			if sameDecision(e, input) {
				result = e
				return nil
			}
			return domain.ErrReviewDecisionConflict
		}

		original := e.CleanedValue
		at := s.now()
		status := input.Decision
		e.ReviewStatus = &status
		e.ReviewedBy = &input.Annotator
		e.ReviewedAt = &at
		switch input.Decision {
		case domain.ReviewStatusApproved:
			e.NeedsReview = false
		case domain.ReviewStatusCorrected:
			e.CleanedValue = input.CorrectedValue
			e.NeedsReview = false
		}
		if err := repos.Extractions.RecordDecision(ctx, e); err != nil {
			return err
		}

		if input.Decision == domain.ReviewStatusCorrected {
			ctxJSON, err := json.Marshal(map[string]interface{}{
				"document_id":    e.DocumentID,
				"row_index":      e.RowIndex,
				"column_name":    e.ColumnName,
				"raw_value":      e.RawValue,
				"rule_chain":     []int64(e.RuleChain),
				"confidence":     e.Confidence,
				"similarity":     e.Similarity,
				"review_reasons": []string(e.ReviewReasons),
			})
			if err != nil {
				return fmt.Errorf("encoding training context: %w", err)
			}
			if err := repos.TrainingExamples.Create(ctx, &domain.TrainingExample{
				ExtractionID:   e.ID,
				OriginalValue:  original,
				CorrectedValue: input.CorrectedValue,
				CorrectionType: input.CorrectionType,
				Annotator:      input.Annotator,
				Context:        ctxJSON,
			}); err != nil {
				return err
			}
		}

		if doc.Status == domain.DocumentStatusQueuedForReview {
			left, err := repos.Extractions.CountUndecided(ctx, doc.ID)
			if err != nil {
				return err
			}
			if left == 0 {
				if err := repos.Documents.UpdateStatus(ctx, doc.ID, doc.Status, domain.DocumentStatusReviewed); err != nil {
					return err
				}
				if err := appendLog(ctx, repos, doc.ID, doc.Status, domain.DocumentStatusReviewed, true, map[string]interface{}{
					"last_extraction": e.ID,
				}, "review queue drained"); err != nil {
					return err
				}
				docMoved = true
			}
		}
		result = e
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reviewService.RecordDecision: %w", err)
	}

	s.logger.Info("review decision recorded",
		zap.String("extraction_id", result.ID.String()),
		zap.String("decision", string(result.Decision())),
		zap.String("annotator", input.Annotator),
		zap.Bool("document_reviewed", docMoved),
	)
	return result, nil
}
