package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanstream/internal/common/config"
	apperrors "loanstream/internal/common/errors"
	"loanstream/internal/common/logger"
)

// ==========================
// Test Doubles
// ==========================

// stubWriter stands in for the async kafka writer.
type stubWriter struct {
	writeErr error
	messages []kafka.Message
	closed   bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func testKafkaConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "loan-applications",
		SecurityProtocol: "plaintext",
		BatchTimeout:     100,
		FlushTimeout:     10000,
		DialTimeout:      5000,
	}
}

// newConnectedPublisher skips the dial and installs the stub writer directly.
func newConnectedPublisher(t *testing.T, w *stubWriter) *KafkaPublisher {
	p := NewKafkaPublisher(testKafkaConfig(), logger.NewTestLogger(t))
	p.writer = w
	p.connected = true
	return p
}

// resolve simulates the writer's completion callback for n messages.
func resolve(p *KafkaPublisher, n int, err error) {
	p.onCompletion(make([]kafka.Message, n), err)
}

// ==========================
// Connect Tests
// ==========================

func TestKafkaPublisher_Connect_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.KafkaConfig)
	}{
		{name: "missing brokers", mutate: func(c *config.KafkaConfig) { c.Brokers = nil }},
		{name: "missing topic", mutate: func(c *config.KafkaConfig) { c.Topic = "" }},
		{
			name: "sasl without credentials",
			mutate: func(c *config.KafkaConfig) {
				c.SecurityProtocol = "sasl_ssl"
				c.SASLUsername = ""
				c.SASLPassword = ""
			},
		},
		{name: "unknown protocol", mutate: func(c *config.KafkaConfig) { c.SecurityProtocol = "kerberos" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testKafkaConfig()
			tt.mutate(&cfg)

			p := NewKafkaPublisher(cfg, logger.NewTestLogger(t))
			err := p.Connect(context.Background())

			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfigurationInvalid))
		})
	}
}

func TestKafkaPublisher_SecurityOptions(t *testing.T) {
	cfg := testKafkaConfig()
	cfg.SecurityProtocol = "sasl_ssl"
	cfg.SASLUsername = "user"
	cfg.SASLPassword = "secret"

	p := NewKafkaPublisher(cfg, logger.NewTestLogger(t))
	tlsConfig, mechanism := p.securityOptions()

	require.NotNil(t, tlsConfig)
	require.NotNil(t, mechanism)
	assert.Equal(t, "PLAIN", mechanism.Name())

	p = NewKafkaPublisher(testKafkaConfig(), logger.NewTestLogger(t))
	tlsConfig, mechanism = p.securityOptions()
	assert.Nil(t, tlsConfig)
	assert.Nil(t, mechanism)
}

// ==========================
// Publish / Pump Tests
// ==========================

func TestKafkaPublisher_Publish_NotConnected(t *testing.T) {
	p := NewKafkaPublisher(testKafkaConfig(), logger.NewTestLogger(t))

	err := p.Publish([]byte("CUST_5E6F7A8B"), []byte(`{}`))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePublishTransportFailed))
	assert.Zero(t, p.Outstanding())
}

func TestKafkaPublisher_Publish_EnqueueError(t *testing.T) {
	w := &stubWriter{writeErr: errors.New("queue full")}
	p := newConnectedPublisher(t, w)

	err := p.Publish([]byte("key"), []byte("value"))

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePublishTransportFailed))
	assert.Zero(t, p.Outstanding(), "a rejected enqueue must not count as outstanding")
}

func TestKafkaPublisher_Publish_TracksOutstanding(t *testing.T) {
	w := &stubWriter{}
	p := newConnectedPublisher(t, w)

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Publish([]byte("key"), []byte("value")))
	}

	assert.Equal(t, 3, p.Outstanding())
	require.Len(t, w.messages, 3)
	assert.Equal(t, []byte("key"), w.messages[0].Key)
}

func TestKafkaPublisher_Pump_Accounting(t *testing.T) {
	p := newConnectedPublisher(t, &stubWriter{})

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Publish([]byte("key"), []byte("value")))
	}

	resolve(p, 3, nil)
	resolve(p, 2, errors.New("broker rejected batch"))

	surfaced := p.Pump()

	assert.Equal(t, 5, surfaced)
	assert.Zero(t, p.Outstanding())
	assert.Equal(t, 3, p.Delivered())
	assert.Equal(t, 2, p.Failed())
}

func TestKafkaPublisher_Pump_NothingResolved(t *testing.T) {
	p := newConnectedPublisher(t, &stubWriter{})

	require.NoError(t, p.Publish([]byte("key"), []byte("value")))

	assert.Zero(t, p.Pump())
	assert.Equal(t, 1, p.Outstanding())
}

// ==========================
// Flush Tests
// ==========================

func TestKafkaPublisher_Flush_DrainsBacklog(t *testing.T) {
	p := newConnectedPublisher(t, &stubWriter{})

	for i := 0; i < 2; i++ {
		require.NoError(t, p.Publish([]byte("key"), []byte("value")))
	}
	resolve(p, 2, nil)

	assert.True(t, p.Flush(time.Second))
	assert.Zero(t, p.Outstanding())
}

func TestKafkaPublisher_Flush_Timeout(t *testing.T) {
	p := newConnectedPublisher(t, &stubWriter{})

	require.NoError(t, p.Publish([]byte("key"), []byte("value")))

	start := time.Now()
	drained := p.Flush(50 * time.Millisecond)

	assert.False(t, drained)
	assert.Equal(t, 1, p.Outstanding())
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestKafkaPublisher_Flush_LateCompletion(t *testing.T) {
	p := newConnectedPublisher(t, &stubWriter{})

	require.NoError(t, p.Publish([]byte("key"), []byte("value")))

	go func() {
		time.Sleep(20 * time.Millisecond)
		resolve(p, 1, nil)
	}()

	assert.True(t, p.Flush(time.Second), "flush must pick up completions that resolve while waiting")
}

// ==========================
// Close Tests
// ==========================

func TestKafkaPublisher_Close(t *testing.T) {
	w := &stubWriter{}
	p := newConnectedPublisher(t, w)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)

	err := p.Publish([]byte("key"), []byte("value"))
	require.Error(t, err, "publish after close must fail")
}

func TestKafkaPublisher_Close_Idempotent(t *testing.T) {
	p := NewKafkaPublisher(testKafkaConfig(), logger.NewTestLogger(t))
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}
