package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"oceanid/internal/csvexport"
	"oceanid/internal/domain"
	"oceanid/internal/port"
	"oceanid/internal/service"
)

// DocumentHandler handles document ingestion endpoints.
type DocumentHandler struct {
	documentService  service.DocumentService
	promotionService service.PromotionService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService service.DocumentService, promotionService service.PromotionService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, promotionService: promotionService}
}

// Upload handles POST /api/v1/documents/upload
// @Summary Upload a registry export
// @Description Upload a CSV, TSV or XLSX export; the ingest worker picks it up
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Registry export"
// @Param source_type formData string false "Source type used for rule scoping"
// @Param source_name formData string false "Source name used for rule scoping"
// @Param delimiter formData string false "Field delimiter override"
// @Success 201 {object} APIResponse{data=domain.Document}
// @Failure 400 {object} APIResponse
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	delim := c.PostForm("delimiter")
	if len([]rune(delim)) > 1 {
		HandleError(c, domain.ErrInvalidDelimiter)
		return
	}

	doc, err := h.documentService.Upload(c.Request.Context(), &service.UploadDocumentInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SourceType:  c.PostForm("source_type"),
		SourceName:  c.PostForm("source_name"),
		Delimiter:   delim,
		Body:        file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, doc)
}

// Register handles POST /api/v1/documents
// @Summary Register a file already in storage
// @Tags documents
// @Accept json
// @Produce json
// @Success 201 {object} APIResponse{data=domain.Document}
// @Failure 400 {object} APIResponse
// @Router /documents [post]
func (h *DocumentHandler) Register(c *gin.Context) {
	var req struct {
		SourceKey  string `json:"source_key" binding:"required"`
		FileName   string `json:"file_name"`
		SourceType string `json:"source_type"`
		SourceName string `json:"source_name"`
		Delimiter  string `json:"delimiter"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "source_key is required")
		return
	}
	if len([]rune(req.Delimiter)) > 1 {
		HandleError(c, domain.ErrInvalidDelimiter)
		return
	}

	doc, err := h.documentService.Register(c.Request.Context(), &service.RegisterDocumentInput{
		SourceKey:  req.SourceKey,
		FileName:   req.FileName,
		SourceType: req.SourceType,
		SourceName: req.SourceName,
		Delimiter:  req.Delimiter,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, doc)
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	filter := port.DocumentFilter{Offset: offset, Limit: limit}
	if s := c.Query("status"); s != "" {
		status := domain.DocumentStatus(s)
		filter.Status = &status
	}

	docs, total, err := h.documentService.List(c.Request.Context(), filter)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, docs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, doc)
}

// ListLogs handles GET /api/v1/documents/:id/logs
func (h *DocumentHandler) ListLogs(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	entries, err := h.documentService.ListLogs(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, entries)
}

// ListRepairs handles GET /api/v1/documents/:id/repairs
func (h *DocumentHandler) ListRepairs(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	repairs, err := h.documentService.ListRepairs(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, repairs)
}

// ListExtractions handles GET /api/v1/documents/:id/extractions
func (h *DocumentHandler) ListExtractions(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	extractions, err := h.documentService.ListExtractions(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, extractions)
}

// ExportCSV handles GET /api/v1/documents/:id/export/csv
// @Summary Export a document's extractions as a review sheet
// @Description Streams one CSV row per extraction. With flagged=true only cells still waiting for a decision are included.
// @Tags documents
// @Produce text/csv
// @Param id path string true "Document ID (UUID)"
// @Param flagged query bool false "Only undecided flagged cells"
// @Success 200 {file} file "CSV file"
// @Failure 404 {object} APIResponse
// @Router /documents/{id}/export/csv [get]
func (h *DocumentHandler) ExportCSV(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	extractions, err := h.documentService.ListExtractions(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	if c.Query("flagged") == "true" {
		pending := extractions[:0]
		for i := range extractions {
			if extractions[i].NeedsReview && extractions[i].Decision() == domain.ReviewStatusNone {
				pending = append(pending, extractions[i])
			}
		}
		extractions = pending
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+csvexport.BuildFilename(doc.FileName, time.Now())+`"`)
	c.Status(http.StatusOK)

	_, _ = c.Writer.Write(csvexport.BOM)
	w := csvexport.NewWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteExtractions(extractions); err != nil {
		return
	}
	w.Flush()
}

// Process handles POST /api/v1/documents/:id/process
// @Summary Reprocess a document
// @Description Runs ingestion synchronously with the current rule snapshot. Review decisions already recorded are kept.
// @Tags documents
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 200 {object} APIResponse{data=service.IngestResult}
// @Failure 409 {object} APIResponse "Document promoted or rejected"
// @Router /documents/{id}/process [post]
func (h *DocumentHandler) Process(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	res, err := h.documentService.Process(c.Request.Context(), docID)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, res)
}

// Reject handles POST /api/v1/documents/:id/reject
func (h *DocumentHandler) Reject(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	// body is optional
	_ = c.ShouldBindJSON(&req)

	doc, err := h.documentService.Reject(c.Request.Context(), docID, req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, doc)
}

// Promote handles POST /api/v1/documents/:id/promote
// @Summary Promote a document into the canonical store
// @Tags promotions
// @Accept json
// @Produce json
// @Param id path string true "Document ID (UUID)"
// @Success 201 {object} APIResponse{data=domain.PromotionRecord}
// @Failure 409 {object} APIResponse "Concurrent promotion or already promoted"
// @Failure 422 {object} APIResponse "Preconditions not met"
// @Router /documents/{id}/promote [post]
func (h *DocumentHandler) Promote(c *gin.Context) {
	docID, ok := parseID(c, "id", "document")
	if !ok {
		return
	}

	var req struct {
		TargetTable string `json:"target_table"`
	}
	_ = c.ShouldBindJSON(&req)

	rec, err := h.promotionService.Promote(c.Request.Context(), docID, req.TargetTable)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, rec)
}
