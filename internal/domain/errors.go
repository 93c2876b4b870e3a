package domain

import "errors"

var (
	ErrNotFound                = errors.New("resource not found")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrExtractionNotFound      = errors.New("extraction not found")
	ErrPromotionNotFound       = errors.New("promotion record not found")
	ErrRuleNotFound            = errors.New("cleaning rule not found")
	ErrUnsupportedFileType     = errors.New("unsupported file type")
	ErrSourceNotFound          = errors.New("source file not found in storage")
	ErrEmptyDocument           = errors.New("document has no header line")
	ErrInvalidDelimiter        = errors.New("delimiter must be a single character")
	ErrInvalidRule             = errors.New("invalid cleaning rule")
	ErrRuleStoreUnavailable    = errors.New("rule store snapshot not loaded")
	ErrInvalidTransition       = errors.New("invalid document state transition")
	ErrDocumentPromoted        = errors.New("document already promoted")
	ErrInvalidDecision         = errors.New("invalid review decision")
	ErrCorrectionValueRequired = errors.New("corrected decision requires a corrected value")
	ErrReviewDecisionConflict  = errors.New("extraction already carries a different review decision")
	ErrExtractionLocked        = errors.New("extraction belongs to a promoted document")
	ErrPromotionConflict       = errors.New("concurrent promotion in progress for document")
	ErrPromotionPrecondition   = errors.New("promotion preconditions not met")
	ErrAlreadyPromoted         = errors.New("document already has an active promotion for target")
	ErrRollbackBlocked         = errors.New("rollback blocked by a later promotion of the same rows")
	ErrAlreadyRolledBack       = errors.New("promotion already rolled back")
)
