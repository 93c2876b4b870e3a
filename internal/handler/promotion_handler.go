package handler

import (
	"github.com/gin-gonic/gin"

	"oceanid/internal/service"
)

// PromotionHandler handles promotion record endpoints.
type PromotionHandler struct {
	promotionService service.PromotionService
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(promotionService service.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotionService: promotionService}
}

// List handles GET /api/v1/promotions
func (h *PromotionHandler) List(c *gin.Context) {
	docID, ok := optionalUUIDQuery(c, "document_id")
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	recs, total, err := h.promotionService.List(c.Request.Context(), docID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/promotions/:id
func (h *PromotionHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "promotion")
	if !ok {
		return
	}

	rec, err := h.promotionService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// Rollback handles POST /api/v1/promotions/:id/rollback
// @Summary Roll back a promotion
// @Description Restores the canonical rows captured before the promotion
// @Tags promotions
// @Produce json
// @Param id path string true "Promotion ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.PromotionRecord}
// @Failure 409 {object} APIResponse "Already rolled back or blocked by a later promotion"
// @Router /promotions/{id}/rollback [post]
func (h *PromotionHandler) Rollback(c *gin.Context) {
	id, ok := parseID(c, "id", "promotion")
	if !ok {
		return
	}

	rec, err := h.promotionService.Rollback(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}
