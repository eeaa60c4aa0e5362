// internal/pipeline/driver.go
package pipeline

import (
	"context"
	"time"

	"loanstream/internal/common/config"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/metrics"
	"loanstream/internal/common/observability"
	"loanstream/internal/generator"
	"loanstream/internal/models"
	"loanstream/internal/stream"
)

// progressInterval is how often batch mode reports progress and flushes the
// publisher to bound the unacknowledged backlog.
const progressInterval = 100

// Handler processes one generated application through the sinks.
type Handler interface {
	Handle(ctx context.Context, app models.LoanApplication) (bool, error)
}

// Summary is the end-of-run report for either generation mode.
type Summary struct {
	Generated int `json:"generated"`
	Sent      int `json:"sent"`
	Fraud     int `json:"fraud"`
}

// FraudRate returns the fraction of generated applications flagged as fraud.
func (s Summary) FraudRate() float64 {
	if s.Generated == 0 {
		return 0
	}
	return float64(s.Fraud) / float64(s.Generated)
}

// Driver runs the sample → build → handle pipeline in two modes: bounded
// historical batch and unbounded interval-paced streaming. One driver owns
// the store handle and the stream client exclusively; there is exactly one
// writer, so no locking is needed around generation.
type Driver struct {
	sampler   *generator.Sampler
	factory   *generator.Factory
	handler   Handler
	publisher stream.Publisher // nil in store-only mode
	cfg       config.GeneratorConfig

	flushTimeout time.Duration
	obs          *observability.Observability
	logger       logger.Logger
	now          func() time.Time
}

func NewDriver(
	sampler *generator.Sampler,
	factory *generator.Factory,
	handler Handler,
	publisher stream.Publisher,
	cfg config.GeneratorConfig,
	flushTimeout time.Duration,
	obs *observability.Observability,
	log logger.Logger,
) *Driver {
	return &Driver{
		sampler:      sampler,
		factory:      factory,
		handler:      handler,
		publisher:    publisher,
		cfg:          cfg,
		flushTimeout: flushTimeout,
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "driver"}),
		now:          time.Now,
	}
}

// RunBatch generates count historical applications with backdated timestamps.
// Every 100th record it reports progress and flushes; a final flush and
// summary close the run. A failed handle aborts the batch.
func (d *Driver) RunBatch(ctx context.Context, count int) (Summary, error) {
	now := d.now().UTC()
	var sum Summary

	d.logger.Info("starting historical batch", map[string]interface{}{
		"count":      count,
		"maxDaysAgo": d.cfg.MaxDaysAgo,
	})

	for i := 1; i <= count; i++ {
		profile := d.sampler.Sample(d.cfg.FraudProbability)
		app := d.factory.BuildBackdated(profile, now, d.cfg.MaxDaysAgo)

		sent, err := d.runCycle(ctx, app)
		if err != nil {
			d.logSummary("batch aborted", sum)
			return sum, err
		}
		sum.Generated++
		if sent {
			sum.Sent++
		}
		if app.IsFraud {
			sum.Fraud++
		}

		if i%progressInterval == 0 {
			d.logger.Info("batch progress", map[string]interface{}{
				"generated": i,
				"total":     count,
			})
			d.flush()
		}
	}

	d.flush()
	d.logSummary("batch complete", sum)
	return sum, nil
}

// RunContinuous generates one application every interval until ctx is
// cancelled. Cancellation is honored between cycles only: the in-flight
// publish+insert always completes first. On cancellation it flushes and
// reports the summary.
func (d *Driver) RunContinuous(ctx context.Context, interval time.Duration) (Summary, error) {
	var sum Summary

	d.logger.Info("starting continuous generation", map[string]interface{}{
		"interval": interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			d.flush()
			d.logSummary("streaming stopped", sum)
			return sum, nil
		default:
		}

		profile := d.sampler.Sample(d.cfg.FraudProbability)
		app := d.factory.Build(profile, d.now().UTC())

		sent, err := d.runCycle(ctx, app)
		if err != nil {
			d.flush()
			d.logSummary("streaming aborted", sum)
			return sum, err
		}
		sum.Generated++
		if sent {
			sum.Sent++
		}
		if app.IsFraud {
			sum.Fraud++
		}

		d.logger.Info("application generated", map[string]interface{}{
			"loanId":      app.LoanID,
			"customerId":  app.CustomerID,
			"fraud":       app.IsFraud,
			"sent":        sent,
			"loanAmount":  app.LoanAmount,
			"creditScore": app.CreditScore,
		})

		select {
		case <-ctx.Done():
		case <-time.After(interval):
		}
	}
}

func (d *Driver) runCycle(ctx context.Context, app models.LoanApplication) (bool, error) {
	start := time.Now()
	metrics.ApplicationsGenerated.WithLabelValues(branchLabel(app.IsFraud)).Inc()

	sent, err := d.handler.Handle(ctx, app)

	status := "sent"
	if err != nil || !sent {
		status = "failed"
	}
	d.obs.RecordCycle(ctx, status)
	d.obs.RecordCycleDuration(ctx, time.Since(start), status)

	if err != nil {
		d.logger.Error("generation cycle failed", map[string]interface{}{
			"loanId": app.LoanID,
			"error":  err.Error(),
		})
		return sent, err
	}
	return sent, nil
}

// flush bounds the unacknowledged backlog. A timeout is reported as a
// warning by the publisher, never treated as fatal.
func (d *Driver) flush() {
	if d.publisher == nil {
		return
	}
	d.publisher.Flush(d.flushTimeout)
}

func (d *Driver) logSummary(msg string, sum Summary) {
	d.logger.Info(msg, map[string]interface{}{
		"generated": sum.Generated,
		"sent":      sum.Sent,
		"fraud":     sum.Fraud,
		"fraudRate": sum.FraudRate(),
	})
}

func branchLabel(isFraud bool) string {
	if isFraud {
		return "suspicious"
	}
	return "normal"
}
