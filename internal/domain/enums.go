package domain

// FileType represents the source file formats accepted for ingestion.
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeTSV  FileType = "tsv"
	FileTypeXLSX FileType = "xlsx"
)

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"csv":  FileTypeCSV,
	"txt":  FileTypeCSV,
	"tsv":  FileTypeTSV,
	"tab":  FileTypeTSV,
	"xlsx": FileTypeXLSX,
}

// DocumentStatus represents the lifecycle of an ingested document.
type DocumentStatus string

const (
	DocumentStatusUploaded        DocumentStatus = "uploaded"
	DocumentStatusParsed          DocumentStatus = "parsed"
	DocumentStatusCleaned         DocumentStatus = "cleaned"
	DocumentStatusAutoPromotable  DocumentStatus = "auto_promotable"
	DocumentStatusQueuedForReview DocumentStatus = "queued_for_review"
	DocumentStatusReviewed        DocumentStatus = "reviewed"
	DocumentStatusPromoted        DocumentStatus = "promoted"
	DocumentStatusRejected        DocumentStatus = "rejected"
)

// documentTransitions lists the legal forward moves of the document state machine.
// Rejection is handled separately since it is reachable from every non-promoted state.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentStatusUploaded:        {DocumentStatusParsed},
	DocumentStatusParsed:          {DocumentStatusCleaned},
	DocumentStatusCleaned:         {DocumentStatusAutoPromotable, DocumentStatusQueuedForReview},
	DocumentStatusAutoPromotable:  {DocumentStatusPromoted, DocumentStatusParsed},
	DocumentStatusQueuedForReview: {DocumentStatusReviewed, DocumentStatusParsed},
	DocumentStatusReviewed:        {DocumentStatusPromoted, DocumentStatusParsed},
	DocumentStatusPromoted:        {DocumentStatusReviewed},
}

// CanTransition reports whether a document may move from one status to another.
func CanTransition(from, to DocumentStatus) bool {
	if to == DocumentStatusRejected {
		return from != DocumentStatusPromoted && from != DocumentStatusRejected
	}
	for _, next := range documentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsPromotable reports whether a document in this status may be promoted.
func (s DocumentStatus) IsPromotable() bool {
	return s == DocumentStatusAutoPromotable || s == DocumentStatusReviewed
}

// IsReprocessable reports whether the document may be (re)parsed.
func (s DocumentStatus) IsReprocessable() bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusAutoPromotable,
		DocumentStatusQueuedForReview, DocumentStatusReviewed:
		return true
	}
	return false
}

// RuleType is the kind of a cleaning rule.
type RuleType string

const (
	RuleTypeRegexReplace       RuleType = "regex_replace"
	RuleTypeFieldMerger        RuleType = "field_merger"
	RuleTypeValidator          RuleType = "validator"
	RuleTypeTypeCoercion       RuleType = "type_coercion"
	RuleTypeFormatStandardizer RuleType = "format_standardizer"
)

// ValidRuleTypes is the set of rule kinds the engine understands.
var ValidRuleTypes = map[RuleType]bool{
	RuleTypeRegexReplace:       true,
	RuleTypeFieldMerger:        true,
	RuleTypeValidator:          true,
	RuleTypeTypeCoercion:       true,
	RuleTypeFormatStandardizer: true,
}

// ReviewStatus represents a human decision on a flagged extraction.
// The zero value means no decision has been recorded.
type ReviewStatus string

const (
	ReviewStatusNone      ReviewStatus = ""
	ReviewStatusApproved  ReviewStatus = "approved"
	ReviewStatusRejected  ReviewStatus = "rejected"
	ReviewStatusCorrected ReviewStatus = "corrected"
)

// ValidReviewStatuses lists decisions accepted from the annotation UI.
var ValidReviewStatuses = map[ReviewStatus]bool{
	ReviewStatusApproved:  true,
	ReviewStatusRejected:  true,
	ReviewStatusCorrected: true,
}

// CorrectionType classifies a human correction for retraining.
type CorrectionType string

const (
	CorrectionValueFix      CorrectionType = "value_fix"
	CorrectionFormatFix     CorrectionType = "format_fix"
	CorrectionTypeFix       CorrectionType = "type_fix"
	CorrectionFalsePositive CorrectionType = "false_positive"
	CorrectionFalseNegative CorrectionType = "false_negative"
)

// ValidCorrectionTypes is the set of accepted correction types.
var ValidCorrectionTypes = map[CorrectionType]bool{
	CorrectionValueFix:      true,
	CorrectionFormatFix:     true,
	CorrectionTypeFix:       true,
	CorrectionFalsePositive: true,
	CorrectionFalseNegative: true,
}

// RepairKind names a structural repair applied by the line parser.
type RepairKind string

const (
	RepairSpuriousQuote     RepairKind = "spurious_quote"
	RepairUnterminatedQuote RepairKind = "unterminated_quote"
	RepairTrailingText      RepairKind = "trailing_text"
	RepairPadded            RepairKind = "padded"
	RepairQuoteMerge        RepairKind = "quote_merge"
	RepairTruncated         RepairKind = "truncated"
	RepairFieldMerger       RepairKind = "field_merger"
)

// RepairSeverity grades how much a repair could have altered the data.
type RepairSeverity string

const (
	SeverityLow    RepairSeverity = "low"
	SeverityMedium RepairSeverity = "medium"
	SeverityHigh   RepairSeverity = "high"
)

// Review reasons attached to extractions. Operators see these in the queue.
const (
	ReasonTruncated        = "truncated — possible data loss"
	ReasonMerged           = "row repaired by field merge"
	ReasonLowConfidence    = "confidence below threshold"
	ReasonLowSimilarity    = "cleaned value diverges from raw value"
	ReasonValidationFailed = "validation failed"
)

// DefaultTargetTable is the canonical table promotions write to.
const DefaultTargetTable = "vessels"
