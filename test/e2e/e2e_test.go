// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanstream/internal/common/config"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/validation"
	"loanstream/internal/generator"
	"loanstream/internal/models"
	"loanstream/internal/pipeline"
	"loanstream/internal/store"
)

// memoryPublisher is an in-process bus double: every publish is accepted and
// acknowledged on the next pump, mimicking the async writer's happy path.
type memoryPublisher struct {
	mu          sync.Mutex
	messages    [][]byte
	outstanding int
	delivered   int
}

func (m *memoryPublisher) Connect(ctx context.Context) error { return nil }

func (m *memoryPublisher) Publish(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, value)
	m.outstanding++
	return nil
}

func (m *memoryPublisher) Pump() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.outstanding
	m.delivered += n
	m.outstanding = 0
	return n
}

func (m *memoryPublisher) Flush(timeout time.Duration) bool {
	m.Pump()
	return true
}

func (m *memoryPublisher) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding
}

func (m *memoryPublisher) Close() error { return nil }

func generatorConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		FraudProbability: 0.2,
		MaxDaysAgo:       90,
		IntervalSeconds:  5,
		BatchSize:        500,
		ValidateMessages: true,
	}
}

func expectReset(mock sqlmock.Sqlmock) {
	mock.ExpectExec(`DROP TABLE IF EXISTS loan_applications`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE loan_applications`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX idx_loan_applications_timestamp`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX idx_loan_applications_customer`).WillReturnResult(sqlmock.NewResult(0, 0))
}

// TestPipeline_HistoricalBatch drives the full chain: sampler, factory,
// coordinator, publisher and store, with only the external systems doubled.
func TestPipeline_HistoricalBatch(t *testing.T) {
	const count = 150

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	log := logger.NewTestLogger(t)
	appStore := store.New(db, log)

	expectReset(mock)
	for i := 0; i < count; i++ {
		mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	ctx := context.Background()
	require.NoError(t, appStore.Reset(ctx))

	rng := rand.New(rand.NewSource(1))
	pub := &memoryPublisher{}
	coord := pipeline.NewCoordinator(pub, appStore, true, log)
	driver := pipeline.NewDriver(
		generator.NewSampler(rng),
		generator.NewFactory(rng),
		coord,
		pub,
		generatorConfig(),
		time.Second,
		nil,
		log,
	)

	sum, err := driver.RunBatch(ctx, count)

	require.NoError(t, err)
	assert.Equal(t, count, sum.Generated)
	assert.Equal(t, count, sum.Sent)
	assert.Len(t, pub.messages, count)
	assert.Zero(t, pub.Outstanding(), "the final flush drains the backlog")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestPipeline_PublishedMessagesMatchContract checks that what reaches the bus
// is exactly what the downstream consumer's schema expects.
func TestPipeline_PublishedMessagesMatchContract(t *testing.T) {
	const count = 50

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < count; i++ {
		mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	log := logger.NewTestLogger(t)
	rng := rand.New(rand.NewSource(2))
	pub := &memoryPublisher{}
	coord := pipeline.NewCoordinator(pub, store.New(db, log), false, log)
	driver := pipeline.NewDriver(
		generator.NewSampler(rng),
		generator.NewFactory(rng),
		coord,
		pub,
		generatorConfig(),
		time.Second,
		nil,
		log,
	)

	_, err = driver.RunBatch(context.Background(), count)
	require.NoError(t, err)

	require.Len(t, pub.messages, count)
	for _, payload := range pub.messages {
		require.NoError(t, validation.ValidateApplicationMessage(payload))

		var app models.LoanApplication
		require.NoError(t, json.Unmarshal(payload, &app))
		assert.Regexp(t, `^LOAN_[0-9A-F]{8}$`, app.LoanID)
	}
}

// TestPipeline_ContinuousUntilCancelled runs streaming mode briefly and checks
// the clean shutdown path.
func TestPipeline_ContinuousUntilCancelled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Enough expectations for every cycle the short run can produce.
	for i := 0; i < 1000; i++ {
		mock.ExpectExec(`INSERT INTO loan_applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	}

	log := logger.NewTestLogger(t)
	rng := rand.New(rand.NewSource(3))
	pub := &memoryPublisher{}
	coord := pipeline.NewCoordinator(pub, store.New(db, log), true, log)
	driver := pipeline.NewDriver(
		generator.NewSampler(rng),
		generator.NewFactory(rng),
		coord,
		pub,
		generatorConfig(),
		time.Second,
		nil,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	var sum pipeline.Summary
	go func() {
		sum, err = driver.RunContinuous(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("continuous mode did not stop after cancellation")
	}

	require.NoError(t, err)
	assert.Greater(t, sum.Generated, 0)
	assert.Equal(t, sum.Generated, sum.Sent)
	assert.Zero(t, pub.Outstanding())
}
