package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"oceanid/internal/config"
	"oceanid/internal/handler"
	"oceanid/internal/lock"
	"oceanid/internal/logger"
	"oceanid/internal/port"
	"oceanid/internal/repository/postgres"
	"oceanid/internal/router"
	"oceanid/internal/rules"
	"oceanid/internal/scoring"
	"oceanid/internal/service"
	miniostorage "oceanid/internal/storage/minio"
	s3storage "oceanid/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	repos := store.Repos()

	// Rules must load before anything is processed.
	ruleProvider := rules.NewProvider(postgres.NewCleaningRuleRepo(db), zlog)
	if _, err := ruleProvider.Reload(ctx); err != nil {
		return fmt.Errorf("failed to load cleaning rules: %w", err)
	}

	storage, err := newStorage(ctx, &cfg.Storage, zlog)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	locker := lock.NewRedisLocker(rdb, cfg.Promotion.LockTTL)

	// Services
	policy := scoring.Policy{
		ConfidenceThreshold: cfg.Review.ConfidenceThreshold,
		SimilarityThreshold: cfg.Review.SimilarityThreshold,
	}
	ingestSvc := service.NewIngestService(repos, store, storage, ruleProvider, policy, service.IngestConfig{
		RowParallelism: cfg.Ingest.RowParallelism,
		BatchSize:      cfg.Ingest.BatchSize,
	}, zlog)
	documentSvc := service.NewDocumentService(repos, store, storage, ingestSvc, zlog)
	reviewSvc := service.NewReviewService(repos, store, zlog)
	promotionSvc := service.NewPromotionService(repos, store, locker, service.PromotionConfig{
		TargetTables:  cfg.Promotion.TargetTables,
		DefaultTarget: cfg.Promotion.DefaultTarget,
	}, zlog)

	worker := service.NewIngestQueueWorker(repos.Documents, ingestSvc, service.IngestQueueConfig{
		PollInterval: time.Duration(cfg.Ingest.PollIntervalSecs) * time.Second,
		MaxAttempts:  cfg.Ingest.MaxAttempts,
		Concurrency:  cfg.Ingest.Concurrency,
		Timeout:      time.Duration(cfg.Ingest.TimeoutSecs) * time.Second,
	}, zlog)
	go worker.Start(ctx)

	r := router.Setup(router.Handlers{
		Documents:  handler.NewDocumentHandler(documentSvc, promotionSvc),
		Review:     handler.NewReviewHandler(reviewSvc),
		Promotions: handler.NewPromotionHandler(promotionSvc),
		Rules:      handler.NewRuleHandler(postgres.NewCleaningRuleRepo(db), ruleProvider),
		Stats:      handler.NewStatsHandler(service.NewStatsService(postgres.NewStatsRepo(db))),
		Health:     handler.NewHealthHandler(db, locker),
	}, cfg.CORS.AllowedOrigins, zlog)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", cfg.Server.Port), zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
	worker.Wait()
	return nil
}

func newStorage(ctx context.Context, cfg *config.StorageConfig, zlog *zap.Logger) (port.SourceStorage, error) {
	switch cfg.Provider {
	case "minio":
		return miniostorage.NewStorage(ctx, cfg, zlog)
	case "s3", "":
		return s3storage.NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
