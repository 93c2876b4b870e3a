package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"oceanid/internal/port"
)

// IngestQueueConfig holds settings for the ingest queue worker.
type IngestQueueConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Concurrency  int
	Timeout      time.Duration
}

// IngestQueueWorker polls for uploaded documents and dispatches them for ingestion.
type IngestQueueWorker struct {
	docRepo port.DocumentRepository
	ingest  IngestService
	cfg     IngestQueueConfig
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewIngestQueueWorker creates a new IngestQueueWorker.
func NewIngestQueueWorker(docRepo port.DocumentRepository, ingest IngestService, cfg IngestQueueConfig, logger *zap.Logger) *IngestQueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &IngestQueueWorker{
		docRepo: docRepo,
		ingest:  ingest,
		cfg:     cfg,
		logger:  logger.Named("ingest_queue"),
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight runs have finished.
func (w *IngestQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("worker started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down, waiting for in-flight documents")
			w.wg.Wait()
			w.logger.Info("shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *IngestQueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	docs, err := w.docRepo.ClaimUploaded(ctx, available, w.cfg.MaxAttempts)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("claiming uploaded documents", zap.Error(err))
		}
		return
	}

	for i := range docs {
		doc := docs[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()

			// detached so in-flight documents finish during shutdown
			runCtx, cancel := context.WithTimeout(context.Background(), w.cfg.Timeout)
			defer cancel()

			w.logger.Info("dispatching document",
				zap.String("document_id", doc.ID.String()),
				zap.Int("attempt", doc.Attempts),
			)
			// failures are recorded on the document by the ingest service
			_, _ = w.ingest.Process(runCtx, &doc)
		}()
	}
}

// Wait blocks until every dispatched document has finished.
func (w *IngestQueueWorker) Wait() {
	w.wg.Wait()
}
