package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Triage       TriageConfig
	Notification NotificationConfig
	Retention    RetentionConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
	RateLimitRPS   int `mapstructure:"rate_limit_rps"`
	RateLimitBurst int `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	MaxRetries   int    `mapstructure:"max_retries"`
}

type AuthConfig struct {
	JWTSecret      string   `mapstructure:"jwt_secret"`
	ChannelKeyHash []string `mapstructure:"channel_key_hashes"`
}

// TriageConfig tunes the decision core.
type TriageConfig struct {
	ConfidenceThreshold   float64       `mapstructure:"confidence_threshold"`
	SessionTimeout        time.Duration `mapstructure:"session_timeout"`
	IntakeCapacity        int           `mapstructure:"intake_capacity"`
	IntakeWorkers         int           `mapstructure:"intake_workers"`
	AssessmentBudget      time.Duration `mapstructure:"assessment_budget"`
	AcknowledgmentBudget  time.Duration `mapstructure:"acknowledgment_budget"`
	ExtractionBudget      time.Duration `mapstructure:"extraction_budget"`
	ConflictRetryAttempts int           `mapstructure:"conflict_retry_attempts"`
}

type NotificationConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUser     string        `mapstructure:"smtp_user"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	FromAddress  string        `mapstructure:"from_address"`

	// Supervisor inbox receiving periodic reminder digests.
	DigestAddress  string        `mapstructure:"digest_address"`
	DigestInterval time.Duration `mapstructure:"digest_interval"`
}

type RetentionConfig struct {
	AuditRetention time.Duration `mapstructure:"audit_retention"`
	PurgeWindow    time.Duration `mapstructure:"purge_window"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("server.rate_limit_rps", 100)
	viper.SetDefault("server.rate_limit_burst", 200)
	viper.SetDefault("triage.confidence_threshold", 0.6)
	viper.SetDefault("triage.session_timeout", 30*time.Minute)
	viper.SetDefault("triage.intake_capacity", 256)
	viper.SetDefault("triage.intake_workers", 8)
	viper.SetDefault("triage.assessment_budget", 2*time.Minute)
	viper.SetDefault("triage.acknowledgment_budget", 30*time.Second)
	viper.SetDefault("triage.extraction_budget", 10*time.Second)
	viper.SetDefault("triage.conflict_retry_attempts", 1)
	viper.SetDefault("notification.max_retries", 3)
	viper.SetDefault("notification.retry_backoff", 5*time.Second)
	viper.SetDefault("notification.digest_interval", time.Hour)
	viper.SetDefault("retention.audit_retention", 365*24*time.Hour)
	viper.SetDefault("retention.purge_window", 72*time.Hour)
}
