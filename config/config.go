package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Scheduler     SchedulerConfig
	Access        AccessConfig
	Notifications NotificationsConfig
	AWS           AWSConfig
	Email         EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SchedulerConfig holds session generation settings.
type SchedulerConfig struct {
	CronSecret     string // shared-secret bearer for /internal endpoints
	HorizonDaysCap int    // upper bound on a config's horizon_days
}

// AccessConfig holds access state machine policy settings.
type AccessConfig struct {
	LiveReplayGraceHours int // how long the replay of a live session stays available
}

// NotificationsConfig holds trigger timing and drain settings.
type NotificationsConfig struct {
	ReminderLeadMinutes int // reminder_before fires this long before session start
	NoShowGraceMinutes  int // no_show fires this long after session end
	MaxAttempts         int // terminal failure after this many delivery attempts
	SendTimeoutSec      int // per-job delivery timeout during a drain
}

// AWSConfig holds AWS credentials and the video bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	VideoBucket          string
	PresignExpireMinutes int
}

// EmailConfig for the worker's SMTP sender.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/webinar?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "webinar"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			CronSecret:     getEnv("CRON_SECRET", ""),
			HorizonDaysCap: getEnvInt("SCHEDULER_HORIZON_DAYS_CAP", 30),
		},
		Access: AccessConfig{
			LiveReplayGraceHours: getEnvInt("ACCESS_LIVE_REPLAY_GRACE_HOURS", 24),
		},
		Notifications: NotificationsConfig{
			ReminderLeadMinutes: getEnvInt("NOTIFY_REMINDER_LEAD_MINUTES", 30),
			NoShowGraceMinutes:  getEnvInt("NOTIFY_NO_SHOW_GRACE_MINUTES", 30),
			MaxAttempts:         getEnvInt("NOTIFY_MAX_ATTEMPTS", 5),
			SendTimeoutSec:      getEnvInt("NOTIFY_SEND_TIMEOUT_SEC", 10),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			VideoBucket:          getEnv("AWS_S3_VIDEO_BUCKET", "webinar-video-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Evergreen Live"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
	}
	if cfg.Scheduler.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required for /internal endpoints")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
