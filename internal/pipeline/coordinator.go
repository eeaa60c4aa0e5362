// internal/pipeline/coordinator.go
package pipeline

import (
	"context"
	"encoding/json"

	apperrors "loanstream/internal/common/errors"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/metrics"
	"loanstream/internal/common/validation"
	"loanstream/internal/models"
	"loanstream/internal/stream"
)

// Store is the slice of the persistent store the coordinator writes to.
type Store interface {
	Insert(ctx context.Context, app models.LoanApplication, kafkaSent bool) error
}

// Coordinator pushes one generated record through the stream publisher and
// then the persistent store, recording the publish outcome known at write
// time. That status is a best-effort, point-in-time observation: callbacks
// resolve asynchronously, so a true row usually means "accepted for
// transmission", not a confirmed bus-side acknowledgment.
//
// A nil publisher selects store-only mode; every row is recorded with
// kafka_sent=false.
type Coordinator struct {
	publisher        stream.Publisher
	store            Store
	validateMessages bool
	logger           logger.Logger
}

func NewCoordinator(pub stream.Publisher, st Store, validateMessages bool, log logger.Logger) *Coordinator {
	return &Coordinator{
		publisher:        pub,
		store:            st,
		validateMessages: validateMessages,
		logger:           log.WithFields(map[string]interface{}{"component": "coordinator"}),
	}
}

// Handle publishes the application keyed by customer_id, pumps once to
// surface any already-resolved callback, and inserts the row with the status
// observed at that instant. A publish transport error records status=false
// and generation continues; an insert error (duplicate key) propagates to the
// caller and halts generation.
func (c *Coordinator) Handle(ctx context.Context, app models.LoanApplication) (bool, error) {
	payload, err := json.Marshal(app)
	if err != nil {
		return false, apperrors.NewMessageValidationFailedError(err.Error())
	}

	if c.validateMessages {
		if err := validation.ValidateApplicationMessage(payload); err != nil {
			return false, apperrors.NewMessageValidationFailedError(err.Error())
		}
	}

	sent := false
	if c.publisher != nil {
		if err := c.publisher.Publish([]byte(app.CustomerID), payload); err != nil {
			metrics.PublishOutcomes.WithLabelValues("failed").Inc()
			c.logger.Warn("publish failed, recording unsent", map[string]interface{}{
				"loanId": app.LoanID,
				"error":  err.Error(),
			})
		} else {
			sent = true
			metrics.PublishOutcomes.WithLabelValues("accepted").Inc()
		}
		c.publisher.Pump()
	}

	if err := c.store.Insert(ctx, app, sent); err != nil {
		return sent, err
	}
	return sent, nil
}
