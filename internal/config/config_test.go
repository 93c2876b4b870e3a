package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oceanid/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, 0.95, cfg.Review.ConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.Review.SimilarityThreshold)
	assert.Equal(t, []string{"vessels"}, cfg.Promotion.TargetTables)
	assert.Equal(t, 2*time.Minute, cfg.Promotion.LockTTL)
	assert.Equal(t, 3, cfg.Ingest.MaxAttempts)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OCEANID_STORAGE_PROVIDER", "MinIO")
	t.Setenv("OCEANID_PROMOTION_TARGET_TABLES", "vessels, vessels_staging")
	t.Setenv("OCEANID_PROMOTION_DEFAULT_TARGET", "vessels_staging")
	t.Setenv("OCEANID_REVIEW_CONFIDENCE_THRESHOLD", "0.9")
	t.Setenv("OCEANID_INGEST_ROW_PARALLELISM", "2")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Storage.Provider)
	assert.Equal(t, []string{"vessels", "vessels_staging"}, cfg.Promotion.TargetTables)
	assert.True(t, cfg.Promotion.AllowsTarget("vessels_staging"))
	assert.False(t, cfg.Promotion.AllowsTarget("documents"))
	assert.Equal(t, 0.9, cfg.Review.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.Ingest.RowParallelism)
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Port)

	t.Setenv("OCEANID_SERVER_PORT", ":7070")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage provider", map[string]string{"OCEANID_STORAGE_PROVIDER": "gcs"}},
		{"threshold above one", map[string]string{"OCEANID_REVIEW_SIMILARITY_THRESHOLD": "1.5"}},
		{"default target not allowed", map[string]string{"OCEANID_PROMOTION_DEFAULT_TARGET": "documents"}},
		{"zero concurrency", map[string]string{"OCEANID_INGEST_CONCURRENCY": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
