package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"oceanid/internal/config"
	"oceanid/internal/domain"
	"oceanid/internal/port"
)

// Storage is a SourceStorage backed by a MinIO (or any S3 compatible) server.
type Storage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewStorage connects to MinIO and makes sure the bucket exists.
func NewStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created bucket", zap.String("bucket", cfg.Bucket))
	}

	return &Storage{client: client, bucket: cfg.Bucket, logger: logger.Named("minio")}, nil
}

var _ port.SourceStorage = (*Storage)(nil)

func (s *Storage) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.logger.Error("failed to store source file", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("minio put: %w", err)
	}
	return nil
}

// Open streams the object. GetObject is lazy, so Stat surfaces a missing key up front.
func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get: %w", err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, key)
		}
		return nil, fmt.Errorf("minio stat: %w", err)
	}
	return obj, nil
}
