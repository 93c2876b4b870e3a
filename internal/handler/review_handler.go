package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"oceanid/internal/domain"
	"oceanid/internal/port"
	"oceanid/internal/service"
)

// ReviewHandler serves the annotation UI.
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ListPending handles GET /api/v1/review/pending
// @Summary List the review queue
// @Description Undecided flagged extractions, lowest confidence first
// @Tags review
// @Produce json
// @Param document_id query string false "Restrict to one document"
// @Param column query string false "Restrict to one column"
// @Success 200 {object} APIResponse{data=[]domain.Extraction}
// @Router /review/pending [get]
func (h *ReviewHandler) ListPending(c *gin.Context) {
	docID, ok := optionalUUIDQuery(c, "document_id")
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	items, total, err := h.reviewService.ListPending(c.Request.Context(), port.ReviewFilter{
		DocumentID: docID,
		ColumnName: c.Query("column"),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, items, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Decide handles POST /api/v1/review/extractions/:id/decision
// @Summary Record a review decision
// @Tags review
// @Accept json
// @Produce json
// @Param id path string true "Extraction ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.Extraction}
// @Failure 400 {object} APIResponse "Invalid decision"
// @Failure 409 {object} APIResponse "Conflicting decision or promoted document"
// @Router /review/extractions/{id}/decision [post]
func (h *ReviewHandler) Decide(c *gin.Context) {
	extractionID, ok := parseID(c, "id", "extraction")
	if !ok {
		return
	}

	var req struct {
		Decision       domain.ReviewStatus   `json:"decision" binding:"required"`
		CorrectedValue *string               `json:"corrected_value"`
		CorrectionType domain.CorrectionType `json:"correction_type"`
		Annotator      string                `json:"annotator" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "decision and annotator are required")
		return
	}

	e, err := h.reviewService.RecordDecision(c.Request.Context(), &service.DecisionInput{
		ExtractionID:   extractionID,
		Decision:       req.Decision,
		CorrectedValue: req.CorrectedValue,
		CorrectionType: req.CorrectionType,
		Annotator:      req.Annotator,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, e)
}

// ListTrainingExamples handles GET /api/v1/review/training-examples
func (h *ReviewHandler) ListTrainingExamples(c *gin.Context) {
	offset, limit := parsePagination(c)

	examples, total, err := h.reviewService.ListTrainingExamples(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, examples, PagMeta{Total: total, Offset: offset, Limit: limit})
}
