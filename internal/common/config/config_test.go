package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaConfig_Validate(t *testing.T) {
	valid := KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "loan-applications",
		SecurityProtocol: "plaintext",
	}

	tests := []struct {
		name    string
		mutate  func(*KafkaConfig)
		wantErr bool
	}{
		{name: "plaintext without credentials", mutate: func(c *KafkaConfig) {}, wantErr: false},
		{name: "empty protocol defaults to plaintext", mutate: func(c *KafkaConfig) { c.SecurityProtocol = "" }, wantErr: false},
		{
			name: "sasl_ssl with credentials",
			mutate: func(c *KafkaConfig) {
				c.SecurityProtocol = "sasl_ssl"
				c.SASLUsername = "user"
				c.SASLPassword = "secret"
			},
			wantErr: false,
		},
		{name: "no brokers", mutate: func(c *KafkaConfig) { c.Brokers = nil }, wantErr: true},
		{name: "no topic", mutate: func(c *KafkaConfig) { c.Topic = "" }, wantErr: true},
		{
			name:    "sasl_ssl without credentials",
			mutate:  func(c *KafkaConfig) { c.SecurityProtocol = "sasl_ssl" },
			wantErr: true,
		},
		{name: "unsupported protocol", mutate: func(c *KafkaConfig) { c.SecurityProtocol = "kerberos" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "loanstream",
		User:     "postgres",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=loanstream sslmode=disable",
		cfg.GetDSN())
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, 0.2, cfg.Generator.FraudProbability)
	assert.Equal(t, 90, cfg.Generator.MaxDaysAgo)
	assert.Equal(t, 5, cfg.Generator.IntervalSeconds)
	assert.Equal(t, 500, cfg.Generator.BatchSize)

	assert.Equal(t, 100, cfg.Kafka.BatchTimeout)
	assert.Equal(t, 10000, cfg.Kafka.FlushTimeout)
	assert.Equal(t, 5000, cfg.Kafka.DialTimeout)

	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)

	assert.Equal(t, 30, cfg.Stats.CacheTTL)
	assert.Equal(t, ":9102", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Generator.FraudProbability = 0.5
	cfg.Generator.BatchSize = 100
	applyDefaults(&cfg)

	assert.Equal(t, 0.5, cfg.Generator.FraudProbability)
	assert.Equal(t, 100, cfg.Generator.BatchSize)
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		var cfg Config
		applyDefaults(&cfg)
		cfg.Database.Postgres.Host = "localhost"
		cfg.Database.Postgres.Database = "loanstream"
		cfg.Database.Postgres.User = "postgres"
		return &cfg
	}

	require.NoError(t, validateConfig(base()))

	missingHost := base()
	missingHost.Database.Postgres.Host = ""
	assert.Error(t, validateConfig(missingHost))

	badProbability := base()
	badProbability.Generator.FraudProbability = 1.5
	assert.Error(t, validateConfig(badProbability))

	badWindow := base()
	badWindow.Generator.MaxDaysAgo = -1
	assert.Error(t, validateConfig(badWindow))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, GetDuration(100))
	assert.Equal(t, 10*time.Second, GetDuration(10000))
	assert.Zero(t, GetDuration(0))
}
