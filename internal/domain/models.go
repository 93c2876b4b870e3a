package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Document is one ingested registry export and the owner of its processing lifecycle.
type Document struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	SourceKey      string         `db:"source_key" json:"source_key"`
	FileName       string         `db:"file_name" json:"file_name"`
	SourceType     string         `db:"source_type" json:"source_type"`
	SourceName     string         `db:"source_name" json:"source_name"`
	Delimiter      string         `db:"delimiter" json:"delimiter"`
	Columns        pq.StringArray `db:"columns" json:"columns"`
	Status         DocumentStatus `db:"status" json:"status"`
	ExpectedFields int            `db:"expected_fields" json:"expected_fields"`
	RowCount       int            `db:"row_count" json:"row_count"`
	Attempts       int            `db:"attempts" json:"attempts"`
	LastError      string         `db:"last_error" json:"last_error"`
	ClaimedAt      *time.Time     `db:"claimed_at" json:"claimed_at"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// RawLine is the original text of one record. Immutable once read.
type RawLine struct {
	DocumentID uuid.UUID
	Index      int
	Text       string
}

// CleaningRule is one configured transformation. Rules are loaded as an
// immutable snapshot per processing run.
type CleaningRule struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"rule_name" json:"rule_name"`
	RuleType    RuleType        `db:"rule_type" json:"rule_type"`
	SourceType  *string         `db:"source_type" json:"source_type,omitempty"`
	SourceName  *string         `db:"source_name" json:"source_name,omitempty"`
	Pattern     string          `db:"pattern" json:"pattern"`
	Replacement string          `db:"replacement" json:"replacement"`
	Condition   json.RawMessage `db:"condition" json:"condition"`
	Config      json.RawMessage `db:"rule_config" json:"rule_config"`
	Priority    int             `db:"priority" json:"priority"`
	Enabled     bool            `db:"is_active" json:"is_active"`
	Version     int             `db:"version" json:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Extraction is one cell's provenance record, unique per (document, row, column).
type Extraction struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	DocumentID    uuid.UUID      `db:"document_id" json:"document_id"`
	RowIndex      int            `db:"row_index" json:"row_index"`
	ColumnName    string         `db:"column_name" json:"column_name"`
	RawValue      string         `db:"raw_value" json:"raw_value"`
	CleanedValue  *string        `db:"cleaned_value" json:"cleaned_value"`
	RuleChain     pq.Int64Array  `db:"rule_chain" json:"rule_chain"`
	Confidence    float64        `db:"confidence" json:"confidence"`
	Similarity    float64        `db:"similarity" json:"similarity"`
	NeedsReview   bool           `db:"needs_review" json:"needs_review"`
	ReviewReasons pq.StringArray `db:"review_reasons" json:"review_reasons"`
	ReviewStatus  *ReviewStatus  `db:"review_status" json:"review_status"`
	ReviewedBy    *string        `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt    *time.Time     `db:"reviewed_at" json:"reviewed_at"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// Decision returns the recorded review decision, or ReviewStatusNone.
func (e *Extraction) Decision() ReviewStatus {
	if e.ReviewStatus == nil {
		return ReviewStatusNone
	}
	return *e.ReviewStatus
}

// Promotable reports whether the extraction satisfies the promotion precondition:
// not flagged, and either approved by a reviewer or never flagged at all.
func (e *Extraction) Promotable() bool {
	if e.NeedsReview {
		return false
	}
	switch e.Decision() {
	case ReviewStatusNone, ReviewStatusApproved, ReviewStatusCorrected:
		return true
	}
	return false
}

// TrainingExample is an append-only record of a human correction.
type TrainingExample struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	ExtractionID   uuid.UUID       `db:"extraction_id" json:"extraction_id"`
	OriginalValue  *string         `db:"original_value" json:"original_value"`
	CorrectedValue *string         `db:"corrected_value" json:"corrected_value"`
	CorrectionType CorrectionType  `db:"correction_type" json:"correction_type"`
	Annotator      string          `db:"annotator" json:"annotator"`
	Context        json.RawMessage `db:"context" json:"context"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// ProcessingLogEntry records one state transition of a document.
type ProcessingLogEntry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	DocumentID uuid.UUID       `db:"document_id" json:"document_id"`
	FromState  DocumentStatus  `db:"from_state" json:"from_state"`
	ToState    DocumentStatus  `db:"to_state" json:"to_state"`
	Success    bool            `db:"success" json:"success"`
	Metrics    json.RawMessage `db:"metrics" json:"metrics"`
	Message    string          `db:"message" json:"message"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// RowRepair is the audit record of a structural repair the parser applied to a row.
type RowRepair struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	DocumentID uuid.UUID      `db:"document_id" json:"document_id"`
	RowIndex   int            `db:"row_index" json:"row_index"`
	Kind       RepairKind     `db:"kind" json:"kind"`
	Severity   RepairSeverity `db:"severity" json:"severity"`
	Position   int            `db:"position" json:"position"`
	Detail     string         `db:"detail" json:"detail"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// PromotionRecord captures one promotion into the canonical store. The
// before/after snapshots make rollback a pure inverse. Seq is assigned by
// the database on insert and orders promotions.
type PromotionRecord struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	Seq                 int64           `db:"seq" json:"seq"`
	DocumentID          uuid.UUID       `db:"document_id" json:"document_id"`
	TargetTable         string          `db:"target_table" json:"target_table"`
	TargetIDs           pq.StringArray  `db:"target_ids" json:"target_ids"`
	BeforeSnapshot      json.RawMessage `db:"before_snapshot" json:"before_snapshot"`
	AfterSnapshot       json.RawMessage `db:"after_snapshot" json:"after_snapshot"`
	QualityChecksPassed bool            `db:"quality_checks_passed" json:"quality_checks_passed"`
	RollbackCompleted   bool            `db:"rollback_completed" json:"rollback_completed"`
	PromotedAt          time.Time       `db:"promoted_at" json:"promoted_at"`
	RolledBackAt        *time.Time      `db:"rolled_back_at" json:"rolled_back_at"`
}

// CanonicalVessel is one row of the canonical vessel store.
type CanonicalVessel struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	NaturalKey       string          `db:"natural_key" json:"natural_key"`
	Attributes       json.RawMessage `db:"attributes" json:"attributes"`
	SourceDocumentID uuid.UUID       `db:"source_document_id" json:"source_document_id"`
	Version          int             `db:"version" json:"version"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// ReviewQueueDepth counts undecided flagged extractions by urgency. High
// holds the least confident cells.
type ReviewQueueDepth struct {
	High   int `db:"high" json:"high"`
	Medium int `db:"medium" json:"medium"`
	Low    int `db:"low" json:"low"`
}

// Total returns the number of cells waiting for a decision.
func (d ReviewQueueDepth) Total() int { return d.High + d.Medium + d.Low }

// Stats is the operator overview of the pipeline.
type Stats struct {
	TotalDocuments    int                    `json:"total_documents"`
	DocumentsByStatus map[DocumentStatus]int `json:"documents_by_status"`
	ReviewQueue       ReviewQueueDepth       `json:"review_queue"`
	PendingReview     int                    `json:"pending_review"`
	ActivePromotions  int                    `json:"active_promotions"`
	TrainingExamples  int                    `json:"training_examples"`
}
