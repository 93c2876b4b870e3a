package handler

import (
	"github.com/gin-gonic/gin"

	"oceanid/internal/service"
)

// StatsHandler handles stats endpoints.
type StatsHandler struct {
	statsService service.StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsService service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats handles GET /api/v1/stats
// @Summary Pipeline overview
// @Description Document counts by status, review queue depth by confidence band, active promotions and training examples.
// @Tags stats
// @Produce json
// @Success 200 {object} APIResponse{data=domain.Stats}
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetStats(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, stats)
}
