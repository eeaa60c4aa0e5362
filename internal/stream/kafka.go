// internal/stream/kafka.go
package stream

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"time"

	"loanstream/internal/common/config"
	apperrors "loanstream/internal/common/errors"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/metrics"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
)

var errNotConnected = errors.New("publisher not connected")

// messageWriter is the slice of kafka.Writer the publisher needs. Tests
// substitute a stub.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// completion is one resolved writer callback, held until Pump drains it.
type completion struct {
	count int
	err   error
}

// KafkaPublisher implements Publisher on an asynchronous kafka-go writer.
// WriteMessages returns as soon as the message is enqueued; the writer's
// Completion callback reports the terminal outcome per batch, and Pump moves
// those results into the outstanding/delivered/failed accounting.
type KafkaPublisher struct {
	cfg    config.KafkaConfig
	logger logger.Logger

	mu          sync.Mutex
	writer      messageWriter
	connected   bool
	outstanding int
	delivered   int
	failed      int
	resolved    []completion
}

func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "kafka-publisher"}),
	}
}

// Connect validates the bus configuration, dials the first broker once to
// verify reachability, and builds the async writer. No automatic retry.
func (p *KafkaPublisher) Connect(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return apperrors.NewConfigurationInvalidError(err.Error())
	}

	tlsConfig, mechanism := p.securityOptions()

	dialer := &kafka.Dialer{
		Timeout:       config.GetDuration(p.cfg.DialTimeout),
		DualStack:     true,
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}

	conn, err := dialer.DialContext(ctx, "tcp", p.cfg.Brokers[0])
	if err != nil {
		return apperrors.NewKafkaConnectionFailedError(err)
	}
	conn.Close()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.cfg.Brokers...),
		Topic:        p.cfg.Topic,
		Balancer:     &kafka.Hash{},
		Async:        true,
		BatchTimeout: config.GetDuration(p.cfg.BatchTimeout),
		Completion:   p.onCompletion,
		Transport: &kafka.Transport{
			TLS:  tlsConfig,
			SASL: mechanism,
		},
	}

	p.mu.Lock()
	p.writer = writer
	p.connected = true
	p.mu.Unlock()

	p.logger.Info("kafka producer connected", map[string]interface{}{
		"brokers": p.cfg.Brokers,
		"topic":   p.cfg.Topic,
	})
	return nil
}

func (p *KafkaPublisher) securityOptions() (*tls.Config, sasl.Mechanism) {
	if strings.EqualFold(p.cfg.SecurityProtocol, "sasl_ssl") {
		return &tls.Config{MinVersion: tls.VersionTLS12}, plain.Mechanism{
			Username: p.cfg.SASLUsername,
			Password: p.cfg.SASLPassword,
		}
	}
	return nil, nil
}

// Publish enqueues one message. The async writer hands back enqueue-time
// errors only; the delivery verdict arrives via the completion callback.
func (p *KafkaPublisher) Publish(key, value []byte) error {
	p.mu.Lock()
	writer := p.writer
	connected := p.connected
	p.mu.Unlock()

	if !connected || writer == nil {
		return apperrors.NewPublishTransportFailedError(errNotConnected)
	}

	if err := writer.WriteMessages(context.Background(), kafka.Message{
		Key:   key,
		Value: value,
	}); err != nil {
		return apperrors.NewPublishTransportFailedError(err)
	}

	p.mu.Lock()
	p.outstanding++
	p.mu.Unlock()
	return nil
}

// onCompletion runs on the writer's I/O goroutine; it only parks the result
// until the next Pump.
func (p *KafkaPublisher) onCompletion(messages []kafka.Message, err error) {
	p.mu.Lock()
	p.resolved = append(p.resolved, completion{count: len(messages), err: err})
	p.mu.Unlock()
}

// Pump drains completion results that have already resolved and returns how
// many messages reached a terminal state.
func (p *KafkaPublisher) Pump() int {
	p.mu.Lock()
	pending := p.resolved
	p.resolved = nil
	p.mu.Unlock()

	surfaced := 0
	for _, c := range pending {
		surfaced += c.count

		p.mu.Lock()
		p.outstanding -= c.count
		if c.err != nil {
			p.failed += c.count
		} else {
			p.delivered += c.count
		}
		p.mu.Unlock()

		if c.err != nil {
			metrics.DeliveryResults.WithLabelValues("failed").Add(float64(c.count))
			p.logger.Warn("message delivery failed", map[string]interface{}{
				"messages": c.count,
				"error":    c.err.Error(),
			})
		} else {
			metrics.DeliveryResults.WithLabelValues("delivered").Add(float64(c.count))
		}
	}
	return surfaced
}

// Flush blocks until the outstanding backlog drains or the timeout elapses.
func (p *KafkaPublisher) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		p.Pump()
		remaining := p.Outstanding()
		if remaining == 0 {
			return true
		}
		if time.Now().After(deadline) {
			metrics.FlushTimeouts.Inc()
			p.logger.Warn("flush timed out", map[string]interface{}{
				"error": apperrors.NewFlushTimeoutError(remaining).Error(),
			})
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Outstanding returns the number of enqueued messages with no terminal
// acknowledgment yet.
func (p *KafkaPublisher) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outstanding
}

// Delivered returns how many messages were acknowledged successfully.
func (p *KafkaPublisher) Delivered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}

// Failed returns how many messages reached a terminal failure.
func (p *KafkaPublisher) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	writer := p.writer
	p.writer = nil
	p.connected = false
	p.mu.Unlock()

	if writer != nil {
		return writer.Close()
	}
	return nil
}
