// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lechuga_bot_backend/platform/validator"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RedisConfig provides settings for the shared redis client.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// TelegramConfig provides settings for the bot messaging channel.
type TelegramConfig interface {
	GetTelegramAPIBaseURL() string
	GetTelegramBotToken() string
	GetTelegramWebhookSecret() string
}

// GateConfig provides settings for the Gemini subject gate.
type GateConfig interface {
	GetGeminiAPIKey() string
	GetGateModel() string
	IsGateEnabled() bool
}

// ClassifierConfig provides settings for the external classifier services.
type ClassifierConfig interface {
	GetImageClassifierURL() string
	GetTabularModelURL() string
}

// GotenbergConfig provides settings for the Gotenberg HTML-to-PDF service.
type GotenbergConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketReportArchive() string
	IsMinIOEnabled() bool
}

// EmailConfig provides settings for SMTP admin alerting.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromAddress() string
	GetAdminAlertAddress() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSOrigins() []string
}

// DiagnosisConfig provides settings for the diagnosis orchestrator.
type DiagnosisConfig interface {
	GetDebounceWindow() time.Duration
	GetUploadsDir() string
	GetReportsDir() string
	GetExampleImagesDir() string
	GetTreatmentLimit() int
	GetLabelSynonymsPath() string
	GetRetryReminderDelay() time.Duration
	GetArchivePublicURL() string
}

// CleanupConfig provides settings for the artifact sweeper.
type CleanupConfig interface {
	GetUploadsDir() string
	GetReportsDir() string
	GetArtifactRetention() time.Duration
	GetSweepInterval() time.Duration
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string `validate:"oneof=development staging production"`
	HTTPAddr string `validate:"required"`

	DatabaseURL string `validate:"required"`

	RedisURL         string `validate:"required"`
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	TelegramAPIBaseURL    string `validate:"required,url"`
	TelegramBotToken      string `validate:"required"`
	TelegramWebhookSecret string

	GeminiAPIKey string
	GateModel    string

	ImageClassifierURL string
	TabularModelURL    string

	GotenbergURL      string
	GotenbergUsername string
	GotenbergPassword string

	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	BucketReportArchive string

	EmailEnabled      bool
	SMTPHost          string
	SMTPPort          int `validate:"min=1,max=65535"`
	SMTPUsername      string
	SMTPPassword      string
	EmailFromAddress  string
	AdminAlertAddress string

	CORSOrigins []string

	DebounceWindow     time.Duration `validate:"min=0"`
	UploadsDir         string        `validate:"required"`
	ReportsDir         string        `validate:"required"`
	ExampleImagesDir   string
	TreatmentLimit     int `validate:"min=1"`
	LabelSynonymsPath  string
	RetryReminderDelay time.Duration
	ArchivePublicURL   string

	ArtifactRetention time.Duration
	SweepInterval     time.Duration
}

// Load reads configuration from the environment (and .env when present).
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getInt("ASYNQ_CONCURRENCY", 10),

		TelegramAPIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GateModel:    getEnv("GATE_MODEL", "gemini-2.5-flash"),

		ImageClassifierURL: os.Getenv("IMAGE_CLASSIFIER_URL"),
		TabularModelURL:    os.Getenv("TABULAR_MODEL_URL"),

		GotenbergURL:      os.Getenv("GOTENBERG_URL"),
		GotenbergUsername: os.Getenv("GOTENBERG_USERNAME"),
		GotenbergPassword: os.Getenv("GOTENBERG_PASSWORD"),

		MinIOEndpoint:       os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:      os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:         getBool("MINIO_USE_SSL", false),
		BucketReportArchive: getEnv("MINIO_BUCKET_REPORT_ARCHIVE", "diagnosis-reports"),

		EmailEnabled:      getBool("EMAIL_ENABLED", false),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", "bot@lechuga.local"),
		AdminAlertAddress: os.Getenv("ADMIN_ALERT_ADDRESS"),

		CORSOrigins: getList("CORS_ORIGINS"),

		DebounceWindow:     getDuration("DEBOUNCE_WINDOW", 60*time.Second),
		UploadsDir:         getEnv("UPLOADS_DIR", "data/uploads"),
		ReportsDir:         getEnv("REPORTS_DIR", "data/reports"),
		ExampleImagesDir:   getEnv("EXAMPLE_IMAGES_DIR", "data/examples"),
		TreatmentLimit:     getInt("TREATMENT_LIMIT", 4),
		LabelSynonymsPath:  os.Getenv("LABEL_SYNONYMS_PATH"),
		RetryReminderDelay: getDuration("RETRY_REMINDER_DELAY", 2*time.Hour),
		ArchivePublicURL:   os.Getenv("ARCHIVE_PUBLIC_URL"),

		ArtifactRetention: getDuration("ARTIFACT_RETENTION", 5*time.Minute),
		SweepInterval:     getDuration("SWEEP_INTERVAL", time.Minute),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetTelegramAPIBaseURL() string    { return c.TelegramAPIBaseURL }
func (c *Config) GetTelegramBotToken() string      { return c.TelegramBotToken }
func (c *Config) GetTelegramWebhookSecret() string { return c.TelegramWebhookSecret }

func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGateModel() string    { return c.GateModel }
func (c *Config) IsGateEnabled() bool     { return c.GeminiAPIKey != "" }

func (c *Config) GetImageClassifierURL() string { return c.ImageClassifierURL }
func (c *Config) GetTabularModelURL() string    { return c.TabularModelURL }

func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

func (c *Config) GetMinIOEndpoint() string           { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string          { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string          { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool               { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketReportArchive() string { return c.BucketReportArchive }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetEmailEnabled() bool        { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string          { return c.SMTPHost }
func (c *Config) GetSMTPPort() int             { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string      { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string      { return c.SMTPPassword }
func (c *Config) GetEmailFromAddress() string  { return c.EmailFromAddress }
func (c *Config) GetAdminAlertAddress() string { return c.AdminAlertAddress }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetDebounceWindow() time.Duration     { return c.DebounceWindow }
func (c *Config) GetUploadsDir() string                { return c.UploadsDir }
func (c *Config) GetReportsDir() string                { return c.ReportsDir }
func (c *Config) GetExampleImagesDir() string          { return c.ExampleImagesDir }
func (c *Config) GetTreatmentLimit() int               { return c.TreatmentLimit }
func (c *Config) GetLabelSynonymsPath() string         { return c.LabelSynonymsPath }
func (c *Config) GetRetryReminderDelay() time.Duration { return c.RetryReminderDelay }

// GetArchivePublicURL is the browser-facing base URL of the archive bucket,
// e.g. https://minio.example.com/diagnosis-reports. Empty when the archive
// is private or disabled.
func (c *Config) GetArchivePublicURL() string { return c.ArchivePublicURL }

func (c *Config) GetArtifactRetention() time.Duration { return c.ArtifactRetention }
func (c *Config) GetSweepInterval() time.Duration     { return c.SweepInterval }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
