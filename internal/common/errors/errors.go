// Package errors provides standardized error handling for the loan
// application generator.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"

	ErrCodeKafkaConnectionFailed  ErrorCode = "KAFKA_CONNECTION_FAILED"
	ErrCodePublishTransportFailed ErrorCode = "PUBLISH_TRANSPORT_FAILED"
	ErrCodeFlushTimeout           ErrorCode = "FLUSH_TIMEOUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDuplicateLoanID          ErrorCode = "DUPLICATE_LOAN_ID"

	ErrCodeMessageValidationFailed ErrorCode = "MESSAGE_VALIDATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// Error Constructors
// ==========================

// NewConfigurationInvalidError creates a non-retryable configuration error.
// Fatal to streaming mode only; local-only generation may still proceed.
func NewConfigurationInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Invalid or missing bus configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewKafkaConnectionFailedError creates a non-retryable connection error.
// Streaming startup aborts; there is no automatic retry.
func NewKafkaConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeKafkaConnectionFailed,
		Message:   "Kafka broker unreachable",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPublishTransportFailedError creates an enqueue-time publish error.
// Recorded as a failed delivery status; generation continues.
func NewPublishTransportFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePublishTransportFailed,
		Message:   "Publish enqueue failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFlushTimeoutError creates a flush timeout error. Reported as a warning
// at batch and summary boundaries, never fatal.
func NewFlushTimeoutError(outstanding int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFlushTimeout,
		Message:   "Flush timed out with unacknowledged messages",
		Details:   fmt.Sprintf("outstanding: %d", outstanding),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a query execution error.
func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateLoanIDError creates a store invariant violation error. A
// duplicate loan_id indicates an identity-generation defect, so generation
// halts rather than retrying.
func NewDuplicateLoanIDError(loanID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateLoanID,
		Message:   "Loan application already exists",
		Details:   fmt.Sprintf("loanId: %s", loanID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageValidationFailedError creates a non-retryable outbound message
// validation error.
func NewMessageValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMessageValidationFailed,
		Message:   "Outbound message failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
