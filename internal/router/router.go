package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"oceanid/internal/handler"
	"oceanid/internal/middleware"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Documents  *handler.DocumentHandler
	Review     *handler.ReviewHandler
	Promotions *handler.PromotionHandler
	Rules      *handler.RuleHandler
	Stats      *handler.StatsHandler
	Health     *handler.HealthHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger.Named("http")))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")

	docs := v1.Group("/documents")
	docs.POST("/upload", h.Documents.Upload)
	docs.POST("", h.Documents.Register)
	docs.GET("", h.Documents.List)
	docs.GET("/:id", h.Documents.GetByID)
	docs.GET("/:id/logs", h.Documents.ListLogs)
	docs.GET("/:id/repairs", h.Documents.ListRepairs)
	docs.GET("/:id/extractions", h.Documents.ListExtractions)
	docs.POST("/:id/process", h.Documents.Process)
	docs.POST("/:id/reject", h.Documents.Reject)
	docs.POST("/:id/promote", h.Documents.Promote)
	docs.GET("/:id/export/csv", h.Documents.ExportCSV)

	review := v1.Group("/review")
	review.GET("/pending", h.Review.ListPending)
	review.POST("/extractions/:id/decision", h.Review.Decide)
	review.GET("/training-examples", h.Review.ListTrainingExamples)

	promotions := v1.Group("/promotions")
	promotions.GET("", h.Promotions.List)
	promotions.GET("/:id", h.Promotions.GetByID)
	promotions.POST("/:id/rollback", h.Promotions.Rollback)

	rules := v1.Group("/rules")
	rules.GET("", h.Rules.List)
	rules.GET("/conflicts", h.Rules.Conflicts)
	rules.POST("/reload", h.Rules.Reload)

	v1.GET("/stats", h.Stats.GetStats)

	return r
}
