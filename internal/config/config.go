package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
)

// Upstream backends.
const (
	BackendDrive = "drive"
	BackendMinIO = "minio"
)

// Registry sources.
const (
	RegistryBuiltin  = "builtin"
	RegistryFile     = "file"
	RegistryPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Registry RegistryConfig
	Probe    ProbeConfig
	Media    MediaConfig
	CORS     CORSConfig
	Metrics  MetricsConfig
	Redis    RedisConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	RabbitMQ RabbitMQConfig
	Sweep    SweepConfig
	Worker   WorkerConfig
}

type ServerConfig struct {
	Port        int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	// WriteTimeout stays zero: a write deadline would cut off long media transfers.
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"0s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

type UpstreamConfig struct {
	Backend         string        `envconfig:"UPSTREAM_BACKEND" default:"drive"`
	DriveBaseURL    string        `envconfig:"DRIVE_BASE_URL" default:"https://drive.google.com/uc"`
	VideoTimeout    time.Duration `envconfig:"VIDEO_TIMEOUT" default:"60s"`
	AudioTimeout    time.Duration `envconfig:"AUDIO_TIMEOUT" default:"30s"`
	MaxContentBytes int64         `envconfig:"MAX_CONTENT_BYTES" default:"209715200"`
	UserAgent       string        `envconfig:"UPSTREAM_USER_AGENT"`
	MaxRedirects    int           `envconfig:"UPSTREAM_MAX_REDIRECTS" default:"5"`
}

type RegistryConfig struct {
	Source string `envconfig:"REGISTRY_SOURCE" default:"builtin"`
	File   string `envconfig:"REGISTRY_FILE" default:"media.yaml"`
}

type ProbeConfig struct {
	Timeout          time.Duration `envconfig:"PROBE_TIMEOUT" default:"15s"`
	SweepTimeout     time.Duration `envconfig:"SWEEP_PROBE_TIMEOUT" default:"10s"`
	SweepConcurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"4"`
	// HealthSample lists kind/id pairs, e.g. "video/v1,english/a1".
	HealthSample []string      `envconfig:"HEALTH_SAMPLE" default:"video/v1,english/a1,hindi/a1"`
	CacheTTL     time.Duration `envconfig:"PROBE_CACHE_TTL" default:"30s"`
}

// Sample parses HealthSample into media references.
func (c ProbeConfig) Sample() ([]model.MediaRef, error) {
	refs := make([]model.MediaRef, 0, len(c.HealthSample))
	for _, item := range c.HealthSample {
		ref, err := model.ParseMediaRef(item)
		if err != nil {
			return nil, fmt.Errorf("HEALTH_SAMPLE entry %q: %w", item, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

type MediaConfig struct {
	CacheMaxAge time.Duration `envconfig:"MEDIA_CACHE_MAX_AGE" default:"8760h"`
	ETagSecret  string        `envconfig:"ETAG_SECRET"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxAge         int      `envconfig:"CORS_MAX_AGE" default:"86400"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"mediarelay"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"mediarelay"`
	DBName   string `envconfig:"POSTGRES_DB" default:"mediarelay"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint       string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	PublicEndpoint string        `envconfig:"MINIO_PUBLIC_ENDPOINT"`
	AccessKey      string        `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string        `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket         string        `envconfig:"MINIO_BUCKET" default:"media"`
	Region         string        `envconfig:"MINIO_REGION" default:"us-east-1"`
	UseSSL         bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	PresignTTL     time.Duration `envconfig:"MINIO_PRESIGN_TTL" default:"15m"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"mediarelay"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"mediarelay"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

// SweepConfig controls asynchronous sweeps. They need PostgreSQL and RabbitMQ.
type SweepConfig struct {
	Enabled bool `envconfig:"SWEEP_ENABLED" default:"false"`
	// Schedule is a cron expression for the worker; empty disables scheduling.
	Schedule   string `envconfig:"SWEEP_SCHEDULE"`
	MaxRetries int    `envconfig:"SWEEP_MAX_RETRIES" default:"3"`
}

type WorkerConfig struct {
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Upstream.Backend {
	case BackendDrive, BackendMinIO:
	default:
		return fmt.Errorf("unknown UPSTREAM_BACKEND %q", c.Upstream.Backend)
	}
	switch c.Registry.Source {
	case RegistryBuiltin, RegistryPostgres:
	case RegistryFile:
		if c.Registry.File == "" {
			return errors.New("REGISTRY_FILE is required when REGISTRY_SOURCE=file")
		}
	default:
		return fmt.Errorf("unknown REGISTRY_SOURCE %q", c.Registry.Source)
	}
	if c.Probe.SweepConcurrency < 1 {
		return fmt.Errorf("SWEEP_CONCURRENCY must be positive, got %d", c.Probe.SweepConcurrency)
	}
	if _, err := c.Probe.Sample(); err != nil {
		return err
	}
	if c.Upstream.MaxContentBytes < 0 {
		return fmt.Errorf("MAX_CONTENT_BYTES must not be negative, got %d", c.Upstream.MaxContentBytes)
	}
	return nil
}

// NewLogger builds the process logger. Unknown levels fall back to info and
// unknown formats to JSON.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
