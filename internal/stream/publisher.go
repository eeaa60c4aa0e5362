// internal/stream/publisher.go
package stream

import (
	"context"
	"time"
)

// Publisher abstracts the pub/sub client the generator streams to.
//
// Publish is non-blocking: it enqueues the message and returns immediately,
// so an error-free return means only "accepted for transmission", never a
// delivery acknowledgment. The real outcome arrives later through the
// client's completion callback and is surfaced by Pump. Flush blocks until
// every previously enqueued message reached a terminal state or the timeout
// elapsed.
type Publisher interface {
	// Connect establishes the underlying session. Failure is reported to the
	// caller, not retried automatically.
	Connect(ctx context.Context) error

	// Publish enqueues one message keyed for partitioning. An error here is
	// an enqueue-time transport failure, not a delivery verdict.
	Publish(key, value []byte) error

	// Pump surfaces completion callbacks that have already resolved and
	// returns how many messages reached a terminal state during this call.
	Pump() int

	// Flush blocks until all enqueued messages are acknowledged or the
	// timeout elapses, and reports whether the backlog fully drained.
	Flush(timeout time.Duration) bool

	// Outstanding returns the number of enqueued messages with no terminal
	// acknowledgment yet.
	Outstanding() int

	Close() error
}
