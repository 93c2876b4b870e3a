package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Log       LogConfig
	CORS      CORSConfig
	Ingest    IngestConfig
	Review    ReviewConfig
	Promotion PromotionConfig
}

// IngestConfig holds ingest queue worker settings.
type IngestConfig struct {
	PollIntervalSecs int `mapstructure:"poll_interval_secs"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	Concurrency      int `mapstructure:"concurrency"`
	RowParallelism   int `mapstructure:"row_parallelism"`
	BatchSize        int `mapstructure:"batch_size"`
	TimeoutSecs      int `mapstructure:"timeout_secs"`
}

// ReviewConfig holds the thresholds that route cells to human review.
type ReviewConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// PromotionConfig holds canonical store promotion settings.
type PromotionConfig struct {
	TargetTables  []string      `mapstructure:"target_tables"`
	DefaultTarget string        `mapstructure:"default_target"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

// AllowsTarget reports whether table is a configured promotion target.
func (p *PromotionConfig) AllowsTarget(table string) bool {
	for _, t := range p.TargetTables {
		if t == table {
			return true
		}
	}
	return false
}

// CORSConfig holds CORS settings for the annotation UI.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis settings used for the promotion lock.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig selects and configures the source file store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// LogConfig holds logging settings. File enables a rotating log file in
// addition to stderr.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads configuration from environment variables with the OCEANID_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OCEANID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "oceanid")
	v.SetDefault("db.password", "oceanid_secret")
	v.SetDefault("db.name", "oceanid")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "oceanid-registry-uploads")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Ingest defaults
	v.SetDefault("ingest.poll_interval_secs", 10)
	v.SetDefault("ingest.max_attempts", 3)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.row_parallelism", 8)
	v.SetDefault("ingest.batch_size", 500)
	v.SetDefault("ingest.timeout_secs", 600)

	// Review defaults
	v.SetDefault("review.confidence_threshold", 0.95)
	v.SetDefault("review.similarity_threshold", 0.5)

	// Promotion defaults
	v.SetDefault("promotion.target_tables", "vessels")
	v.SetDefault("promotion.default_target", "vessels")
	v.SetDefault("promotion.lock_ttl", "2m")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "OCEANID_SERVER_PORT",
		"server.read_timeout":         "OCEANID_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "OCEANID_SERVER_WRITE_TIMEOUT",
		"server.environment":          "OCEANID_SERVER_ENVIRONMENT",
		"db.host":                     "OCEANID_DB_HOST",
		"db.port":                     "OCEANID_DB_PORT",
		"db.user":                     "OCEANID_DB_USER",
		"db.password":                 "OCEANID_DB_PASSWORD",
		"db.name":                     "OCEANID_DB_NAME",
		"db.sslmode":                  "OCEANID_DB_SSLMODE",
		"db.max_open":                 "OCEANID_DB_MAX_OPEN",
		"db.max_idle":                 "OCEANID_DB_MAX_IDLE",
		"redis.addr":                  "OCEANID_REDIS_ADDR",
		"redis.password":              "OCEANID_REDIS_PASSWORD",
		"redis.db":                    "OCEANID_REDIS_DB",
		"storage.provider":            "OCEANID_STORAGE_PROVIDER",
		"storage.region":              "OCEANID_STORAGE_REGION",
		"storage.bucket":              "OCEANID_STORAGE_BUCKET",
		"storage.endpoint":            "OCEANID_STORAGE_ENDPOINT",
		"storage.access_key":          "OCEANID_STORAGE_ACCESS_KEY",
		"storage.secret_key":          "OCEANID_STORAGE_SECRET_KEY",
		"storage.use_ssl":             "OCEANID_STORAGE_USE_SSL",
		"log.level":                   "OCEANID_LOG_LEVEL",
		"log.format":                  "OCEANID_LOG_FORMAT",
		"log.file":                    "OCEANID_LOG_FILE",
		"log.max_size_mb":             "OCEANID_LOG_MAX_SIZE_MB",
		"log.max_backups":             "OCEANID_LOG_MAX_BACKUPS",
		"log.max_age_days":            "OCEANID_LOG_MAX_AGE_DAYS",
		"cors.allowed_origins":        "OCEANID_CORS_ALLOWED_ORIGINS",
		"ingest.poll_interval_secs":   "OCEANID_INGEST_POLL_INTERVAL_SECS",
		"ingest.max_attempts":         "OCEANID_INGEST_MAX_ATTEMPTS",
		"ingest.concurrency":          "OCEANID_INGEST_CONCURRENCY",
		"ingest.row_parallelism":      "OCEANID_INGEST_ROW_PARALLELISM",
		"ingest.batch_size":           "OCEANID_INGEST_BATCH_SIZE",
		"ingest.timeout_secs":         "OCEANID_INGEST_TIMEOUT_SECS",
		"review.confidence_threshold": "OCEANID_REVIEW_CONFIDENCE_THRESHOLD",
		"review.similarity_threshold": "OCEANID_REVIEW_SIMILARITY_THRESHOLD",
		"promotion.target_tables":     "OCEANID_PROMOTION_TARGET_TABLES",
		"promotion.default_target":    "OCEANID_PROMOTION_DEFAULT_TARGET",
		"promotion.lock_ttl":          "OCEANID_PROMOTION_LOCK_TTL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set PORT. Use it unless OCEANID_SERVER_PORT is explicit.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("OCEANID_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	cfg.Storage = StorageConfig{
		Provider:  strings.ToLower(v.GetString("storage.provider")),
		Region:    v.GetString("storage.region"),
		Bucket:    v.GetString("storage.bucket"),
		Endpoint:  v.GetString("storage.endpoint"),
		AccessKey: v.GetString("storage.access_key"),
		SecretKey: v.GetString("storage.secret_key"),
		UseSSL:    v.GetBool("storage.use_ssl"),
	}
	cfg.Log = LogConfig{
		Level:      v.GetString("log.level"),
		Format:     v.GetString("log.format"),
		File:       v.GetString("log.file"),
		MaxSizeMB:  v.GetInt("log.max_size_mb"),
		MaxBackups: v.GetInt("log.max_backups"),
		MaxAgeDays: v.GetInt("log.max_age_days"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Ingest = IngestConfig{
		PollIntervalSecs: v.GetInt("ingest.poll_interval_secs"),
		MaxAttempts:      v.GetInt("ingest.max_attempts"),
		Concurrency:      v.GetInt("ingest.concurrency"),
		RowParallelism:   v.GetInt("ingest.row_parallelism"),
		BatchSize:        v.GetInt("ingest.batch_size"),
		TimeoutSecs:      v.GetInt("ingest.timeout_secs"),
	}
	cfg.Review = ReviewConfig{
		ConfidenceThreshold: v.GetFloat64("review.confidence_threshold"),
		SimilarityThreshold: v.GetFloat64("review.similarity_threshold"),
	}
	cfg.Promotion = PromotionConfig{
		TargetTables:  splitList(v.GetString("promotion.target_tables")),
		DefaultTarget: v.GetString("promotion.default_target"),
		LockTTL:       v.GetDuration("promotion.lock_ttl"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case "s3", "minio":
	default:
		return fmt.Errorf("config: unknown storage provider %q", c.Storage.Provider)
	}
	if c.Ingest.Concurrency < 1 || c.Ingest.RowParallelism < 1 || c.Ingest.BatchSize < 1 {
		return fmt.Errorf("config: ingest concurrency, row_parallelism and batch_size must be positive")
	}
	if c.Review.ConfidenceThreshold < 0 || c.Review.ConfidenceThreshold > 1 ||
		c.Review.SimilarityThreshold < 0 || c.Review.SimilarityThreshold > 1 {
		return fmt.Errorf("config: review thresholds must be within [0,1]")
	}
	if !c.Promotion.AllowsTarget(c.Promotion.DefaultTarget) {
		return fmt.Errorf("config: default promotion target %q is not in target_tables", c.Promotion.DefaultTarget)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
