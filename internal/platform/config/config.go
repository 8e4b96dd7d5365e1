package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueWorkers  int

	AdPlatformBaseURL string
	AdPlatformToken   string
	RemoteTimeout     time.Duration
	StageFanout       int
	RollbackOnFailure bool
	IdempotencyTTL    time.Duration

	ReaperSchedule string
	StaleJobAfter  time.Duration

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	EnableLaunchConsumer bool
	EnableStaleJobReaper bool

	// Overlay is the raw YAML file named by ADPILOT_CONFIG. It also carries
	// the variant catalog.
	Overlay []byte
}

// overlay mirrors the YAML keys that may override the environment.
type overlay struct {
	HTTPPort          *string `yaml:"http_port"`
	StageFanout       *int    `yaml:"stage_fanout"`
	RemoteTimeout     *string `yaml:"remote_timeout"`
	RollbackOnFailure *bool   `yaml:"rollback_on_failure"`
	ReaperSchedule    *string `yaml:"reaper_schedule"`
	StaleJobAfter     *string `yaml:"stale_job_after"`
	LogLevel          *string `yaml:"log_level"`
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "adpilot"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		ServiceName: service,
		HTTPPort:    port,
		DatabaseDSN: strings.TrimSpace(os.Getenv("DATABASE_DSN")),

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		QueueWorkers:  envInt("QUEUE_WORKERS", 4),

		AdPlatformBaseURL: strings.TrimSpace(os.Getenv("AD_PLATFORM_BASE_URL")),
		AdPlatformToken:   strings.TrimSpace(os.Getenv("AD_PLATFORM_TOKEN")),
		RemoteTimeout:     envDuration("REMOTE_TIMEOUT", 12*time.Second),
		StageFanout:       envInt("STAGE_FANOUT", 3),
		RollbackOnFailure: envBool("ROLLBACK_ON_FAILURE", false),
		IdempotencyTTL:    envDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		ReaperSchedule: envString("REAPER_SCHEDULE", "@every 1m"),
		StaleJobAfter:  envDuration("STALE_JOB_AFTER", 10*time.Minute),

		LogLevel:      envString("LOG_LEVEL", "info"),
		LogFile:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 14),

		EnableLaunchConsumer: envBool("ENABLE_LAUNCH_CONSUMER", true),
		EnableStaleJobReaper: envBool("ENABLE_STALE_JOB_REAPER", true),
	}

	if path := strings.TrimSpace(os.Getenv("ADPILOT_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config overlay: %w", err)
		}
		if err := cfg.ApplyOverlay(raw); err != nil {
			return Config{}, err
		}
	}
	if cfg.StageFanout <= 0 {
		return Config{}, fmt.Errorf("stage fanout must be positive, got %d", cfg.StageFanout)
	}
	return cfg, nil
}

// ApplyOverlay layers a YAML document over cfg and keeps it in Overlay.
func (c *Config) ApplyOverlay(raw []byte) error {
	var values overlay
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config overlay: %w", err)
	}
	if values.HTTPPort != nil {
		c.HTTPPort = *values.HTTPPort
	}
	if values.StageFanout != nil {
		c.StageFanout = *values.StageFanout
	}
	if values.RemoteTimeout != nil {
		parsed, err := time.ParseDuration(*values.RemoteTimeout)
		if err != nil {
			return fmt.Errorf("remote_timeout: %w", err)
		}
		c.RemoteTimeout = parsed
	}
	if values.RollbackOnFailure != nil {
		c.RollbackOnFailure = *values.RollbackOnFailure
	}
	if values.ReaperSchedule != nil {
		c.ReaperSchedule = *values.ReaperSchedule
	}
	if values.StaleJobAfter != nil {
		parsed, err := time.ParseDuration(*values.StaleJobAfter)
		if err != nil {
			return fmt.Errorf("stale_job_after: %w", err)
		}
		c.StaleJobAfter = parsed
	}
	if values.LogLevel != nil {
		c.LogLevel = *values.LogLevel
	}
	c.Overlay = append([]byte(nil), raw...)
	return nil
}

func envString(name string, fallback string) string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return raw
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
