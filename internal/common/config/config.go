// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// KafkaConfig holds the stream bus connection settings. Credentials come from
// config file placeholders or environment variables, never from source.
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	Topic            string   `mapstructure:"topic"`
	SecurityProtocol string   `mapstructure:"security_protocol"` // plaintext | sasl_ssl
	SASLUsername     string   `mapstructure:"sasl_username"`
	SASLPassword     string   `mapstructure:"sasl_password"`
	BatchTimeout     int      `mapstructure:"batch_timeout"` // milliseconds
	FlushTimeout     int      `mapstructure:"flush_timeout"` // milliseconds
	DialTimeout      int      `mapstructure:"dial_timeout"`  // milliseconds
}

// Validate checks that the bus configuration is usable for streaming.
// Local-only generation does not need a valid Kafka section, so this runs at
// streaming startup rather than at config load.
func (k KafkaConfig) Validate() error {
	if len(k.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required for streaming")
	}
	if k.Topic == "" {
		return fmt.Errorf("kafka.topic is required for streaming")
	}
	switch strings.ToLower(k.SecurityProtocol) {
	case "", "plaintext":
	case "sasl_ssl":
		if k.SASLUsername == "" || k.SASLPassword == "" {
			return fmt.Errorf("kafka sasl_ssl requires sasl_username and sasl_password")
		}
	default:
		return fmt.Errorf("unsupported kafka.security_protocol %q", k.SecurityProtocol)
	}
	return nil
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GeneratorConfig holds the knobs of the profile sampler and the two
// generation modes.
type GeneratorConfig struct {
	FraudProbability float64 `mapstructure:"fraud_probability"`
	MaxDaysAgo       int     `mapstructure:"max_days_ago"`
	IntervalSeconds  int     `mapstructure:"interval_seconds"`
	BatchSize        int     `mapstructure:"batch_size"`
	ValidateMessages bool    `mapstructure:"validate_messages"`
}

// StatsConfig holds settings for the cached stats snapshot.
type StatsConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // seconds, 0 disables caching
}

// MetricsConfig holds the Prometheus scrape endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
