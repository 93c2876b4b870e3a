package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"oceanid/internal/domain"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound, "DOCUMENT_NOT_FOUND", "document not found"
	case errors.Is(err, domain.ErrExtractionNotFound):
		return http.StatusNotFound, "EXTRACTION_NOT_FOUND", "extraction not found"
	case errors.Is(err, domain.ErrPromotionNotFound):
		return http.StatusNotFound, "PROMOTION_NOT_FOUND", "promotion record not found"
	case errors.Is(err, domain.ErrRuleNotFound):
		return http.StatusNotFound, "RULE_NOT_FOUND", "cleaning rule not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: csv, txt, tsv, tab, xlsx"
	case errors.Is(err, domain.ErrInvalidDelimiter):
		return http.StatusBadRequest, "INVALID_DELIMITER", "delimiter must be a single character"
	case errors.Is(err, domain.ErrSourceNotFound):
		return http.StatusUnprocessableEntity, "SOURCE_NOT_FOUND", "source file not found in storage"
	case errors.Is(err, domain.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "EMPTY_DOCUMENT", "document has no header line"
	case errors.Is(err, domain.ErrInvalidRule):
		return http.StatusUnprocessableEntity, "INVALID_RULE", err.Error()
	case errors.Is(err, domain.ErrRuleStoreUnavailable):
		return http.StatusServiceUnavailable, "RULES_UNAVAILABLE", "cleaning rules are not loaded"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", "document is not in a state that allows this action"
	case errors.Is(err, domain.ErrDocumentPromoted):
		return http.StatusConflict, "DOCUMENT_PROMOTED", "document already promoted; roll back first"
	case errors.Is(err, domain.ErrCorrectionValueRequired):
		return http.StatusBadRequest, "CORRECTION_VALUE_REQUIRED", "a corrected decision requires corrected_value"
	case errors.Is(err, domain.ErrInvalidDecision):
		return http.StatusBadRequest, "INVALID_DECISION", err.Error()
	case errors.Is(err, domain.ErrReviewDecisionConflict):
		return http.StatusConflict, "DECISION_CONFLICT", "extraction already carries a different decision"
	case errors.Is(err, domain.ErrExtractionLocked):
		return http.StatusConflict, "EXTRACTION_LOCKED", "extraction belongs to a promoted document"
	case errors.Is(err, domain.ErrPromotionConflict):
		return http.StatusConflict, "PROMOTION_CONFLICT", "another promotion for this document is in progress"
	case errors.Is(err, domain.ErrAlreadyPromoted):
		return http.StatusConflict, "ALREADY_PROMOTED", "document already has an active promotion for this target"
	case errors.Is(err, domain.ErrPromotionPrecondition):
		return http.StatusUnprocessableEntity, "PROMOTION_PRECONDITION", err.Error()
	case errors.Is(err, domain.ErrRollbackBlocked):
		return http.StatusConflict, "ROLLBACK_BLOCKED", "a later promotion touched the same rows"
	case errors.Is(err, domain.ErrAlreadyRolledBack):
		return http.StatusConflict, "ALREADY_ROLLED_BACK", "promotion already rolled back"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		zap.L().Error("internal error",
			zap.Any("request_id", requestID),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	RespondError(c, status, code, msg)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// parseID reads a UUID path parameter. Returns false if invalid (error response already written).
func parseID(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery reads an optional UUID query parameter.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a UUID")
		return nil, false
	}
	return &id, true
}
