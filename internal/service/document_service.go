package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// UploadDocumentInput is the DTO for uploading a registry export.
type UploadDocumentInput struct {
	FileName    string
	ContentType string
	SourceType  string
	SourceName  string
	Delimiter   string
	Body        io.Reader
}

// RegisterDocumentInput is the DTO for registering a file already in storage.
type RegisterDocumentInput struct {
	SourceKey  string
	FileName   string
	SourceType string
	SourceName string
	Delimiter  string
}

// DocumentService defines the document management contract.
type DocumentService interface {
	Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error)
	Register(ctx context.Context, input *RegisterDocumentInput) (*domain.Document, error)
	GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, filter port.DocumentFilter) ([]domain.Document, int, error)
	ListLogs(ctx context.Context, docID uuid.UUID) ([]domain.ProcessingLogEntry, error)
	ListRepairs(ctx context.Context, docID uuid.UUID) ([]domain.RowRepair, error)
	ListExtractions(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error)
	// Process runs ingestion synchronously, used for reprocessing after a rule change.
	Process(ctx context.Context, docID uuid.UUID) (*IngestResult, error)
	Reject(ctx context.Context, docID uuid.UUID, reason string) (*domain.Document, error)
}

type documentService struct {
	repos   port.Repos
	tx      port.Transactor
	storage port.SourceStorage
	ingest  IngestService
	logger  *zap.Logger
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(repos port.Repos, tx port.Transactor, storage port.SourceStorage, ingest IngestService, logger *zap.Logger) DocumentService {
	return &documentService{
		repos:   repos,
		tx:      tx,
		storage: storage,
		ingest:  ingest,
		logger:  logger.Named("documents"),
	}
}

func checkFileName(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%w: missing file name", domain.ErrUnsupportedFileType)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, ext)
	}
	return name, nil
}

func (s *documentService) Upload(ctx context.Context, input *UploadDocumentInput) (*domain.Document, error) {
	name, err := checkFileName(input.FileName)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	key := path.Join("sources", id.String(), name)
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.storage.Put(ctx, key, input.Body, contentType); err != nil {
		return nil, fmt.Errorf("documentService.Upload: %w", err)
	}
	return s.create(ctx, id, &RegisterDocumentInput{
		SourceKey:  key,
		FileName:   name,
		SourceType: input.SourceType,
		SourceName: input.SourceName,
		Delimiter:  input.Delimiter,
	})
}

func (s *documentService) Register(ctx context.Context, input *RegisterDocumentInput) (*domain.Document, error) {
	if strings.TrimSpace(input.SourceKey) == "" {
		return nil, fmt.Errorf("%w: missing source key", domain.ErrSourceNotFound)
	}
	if input.FileName == "" {
		input.FileName = path.Base(input.SourceKey)
	}
	name, err := checkFileName(input.FileName)
	if err != nil {
		return nil, err
	}
	input.FileName = name
	return s.create(ctx, uuid.New(), input)
}

func (s *documentService) create(ctx context.Context, id uuid.UUID, input *RegisterDocumentInput) (*domain.Document, error) {
	doc := &domain.Document{
		ID:         id,
		SourceKey:  input.SourceKey,
		FileName:   input.FileName,
		SourceType: strings.TrimSpace(input.SourceType),
		SourceName: strings.TrimSpace(input.SourceName),
		Delimiter:  input.Delimiter,
		Columns:    []string{},
		Status:     domain.DocumentStatusUploaded,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		if err := repos.Documents.Create(ctx, doc); err != nil {
			return err
		}
		return appendLog(ctx, repos, doc.ID, "", domain.DocumentStatusUploaded, true, map[string]interface{}{
			"source_key": doc.SourceKey,
		}, "")
	})
	if err != nil {
		return nil, fmt.Errorf("documentService.create: %w", err)
	}
	s.logger.Info("document registered",
		zap.String("document_id", doc.ID.String()),
		zap.String("source_key", doc.SourceKey),
		zap.String("source_name", doc.SourceName),
	)
	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, docID uuid.UUID) (*domain.Document, error) {
	return s.repos.Documents.GetByID(ctx, docID)
}

func (s *documentService) List(ctx context.Context, filter port.DocumentFilter) ([]domain.Document, int, error) {
	return s.repos.Documents.List(ctx, filter)
}

func (s *documentService) ListLogs(ctx context.Context, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	if _, err := s.repos.Documents.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.repos.ProcessingLogs.ListByDocument(ctx, docID)
}

func (s *documentService) ListRepairs(ctx context.Context, docID uuid.UUID) ([]domain.RowRepair, error) {
	if _, err := s.repos.Documents.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.repos.RowRepairs.ListByDocument(ctx, docID)
}

func (s *documentService) ListExtractions(ctx context.Context, docID uuid.UUID) ([]domain.Extraction, error) {
	if _, err := s.repos.Documents.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.repos.Extractions.ListByDocument(ctx, docID)
}

func (s *documentService) Process(ctx context.Context, docID uuid.UUID) (*IngestResult, error) {
	doc, err := s.repos.Documents.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.Status == domain.DocumentStatusPromoted:
		return nil, domain.ErrDocumentPromoted
	case !doc.Status.IsReprocessable():
		return nil, fmt.Errorf("%w: cannot process a %s document", domain.ErrInvalidTransition, doc.Status)
	}
	return s.ingest.Process(ctx, doc)
}

func (s *documentService) Reject(ctx context.Context, docID uuid.UUID, reason string) (*domain.Document, error) {
	var doc *domain.Document
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos port.Repos) error {
		var err error
		doc, err = repos.Documents.GetForUpdate(ctx, docID, false)
		if err != nil {
			return err
		}
		if doc.Status == domain.DocumentStatusPromoted {
			return domain.ErrDocumentPromoted
		}
		from := doc.Status
		if err := repos.Documents.UpdateStatus(ctx, docID, from, domain.DocumentStatusRejected); err != nil {
			return err
		}
		doc.Status = domain.DocumentStatusRejected
		return appendLog(ctx, repos, docID, from, domain.DocumentStatusRejected, true, nil, reason)
	})
	if err != nil {
		return nil, fmt.Errorf("documentService.Reject: %w", err)
	}
	s.logger.Info("document rejected", zap.String("document_id", docID.String()), zap.String("reason", reason))
	return doc, nil
}
