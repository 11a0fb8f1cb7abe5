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
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// ServiceAuthConfig provides settings for the decision API's service tokens.
type ServiceAuthConfig interface {
	GetServiceJWTSecret() string
	GetServiceTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetFollowupSweepInterval() time.Duration
	GetRenewalSweepInterval() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// EngineConfig provides tuning knobs for the task decision engine.
type EngineConfig interface {
	// GetTaskDueOffset returns the due-date offset for a task name,
	// falling back to the default when none is configured.
	GetTaskDueOffset(taskName string) time.Duration
	GetMoveoutNoticePeriodDays() int
}

// =============================================================================
// Config Implementation
// =============================================================================

// Config holds all application configuration, loaded from the environment.
type Config struct {
	Env string

	DatabaseURL string

	HTTPAddr       string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	ServiceJWTSecret string
	ServiceTokenTTL  time.Duration

	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	FollowupSweepInterval time.Duration
	RenewalSweepInterval  time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	AppBaseURL       string

	TaskDueOffsets         map[string]time.Duration
	DefaultTaskDueOffset   time.Duration
	MoveoutNoticePeriodDay int
}

// Load reads configuration from the environment, optionally seeded from .env.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:   getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:    splitEnv("CORS_ORIGINS"),
		CORSAllowCreds: getBoolEnv("CORS_ALLOW_CREDENTIALS", false),

		ServiceJWTSecret: os.Getenv("SERVICE_JWT_SECRET"),
		ServiceTokenTTL:  getDurationEnv("SERVICE_TOKEN_TTL", 24*time.Hour),

		RedisURL:              os.Getenv("REDIS_URL"),
		RedisTLSInsecure:      getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "tasks"),
		AsynqConcurrency:      getIntEnv("ASYNQ_CONCURRENCY", 10),
		FollowupSweepInterval: getDurationEnv("FOLLOWUP_SWEEP_INTERVAL", time.Hour),
		RenewalSweepInterval:  getDurationEnv("RENEWAL_SWEEP_INTERVAL", 6*time.Hour),

		EmailEnabled:     getBoolEnv("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Leasing CRM"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:3000"),

		TaskDueOffsets:         loadTaskDueOffsets(),
		DefaultTaskDueOffset:   getDurationEnv("TASK_DUE_OFFSET_DEFAULT", 24*time.Hour),
		MoveoutNoticePeriodDay: getIntEnv("MOVEOUT_NOTICE_PERIOD_DAYS", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ServiceJWTSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("SERVICE_JWT_SECRET is required outside development")
	}

	return cfg, nil
}

// Interface implementations.

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string               { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool             { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string          { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool           { return c.CORSAllowCreds }
func (c *Config) GetServiceJWTSecret() string       { return c.ServiceJWTSecret }
func (c *Config) GetServiceTokenTTL() time.Duration { return c.ServiceTokenTTL }

func (c *Config) GetRedisURL() string                     { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool               { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string               { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                { return c.AsynqConcurrency }
func (c *Config) GetFollowupSweepInterval() time.Duration { return c.FollowupSweepInterval }
func (c *Config) GetRenewalSweepInterval() time.Duration  { return c.RenewalSweepInterval }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

func (c *Config) GetTaskDueOffset(taskName string) time.Duration {
	if d, ok := c.TaskDueOffsets[taskName]; ok {
		return d
	}
	return c.DefaultTaskDueOffset
}

func (c *Config) GetMoveoutNoticePeriodDays() int { return c.MoveoutNoticePeriodDay }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getIntEnv(key string, fallback int) int {
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
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

const taskDueOffsetPrefix = "TASK_DUE_OFFSET_"

// loadTaskDueOffsets collects per-task due offsets from the environment,
// e.g. TASK_DUE_OFFSET_APPROVE_LEASE=72h. TASK_DUE_OFFSET_DEFAULT is the
// fallback and is loaded separately.
func loadTaskDueOffsets() map[string]time.Duration {
	offsets := make(map[string]time.Duration)
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, taskDueOffsetPrefix) || key == "TASK_DUE_OFFSET_DEFAULT" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			continue
		}
		offsets[strings.TrimPrefix(key, taskDueOffsetPrefix)] = d
	}
	return offsets
}

func splitEnv(key string) []string {
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
