// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "loanstream/internal/common/errors"
	"loanstream/internal/common/logger"
	"loanstream/internal/common/metrics"
	"loanstream/internal/models"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// StoredApplication is one persisted row: the application plus the delivery
// status observed at the moment of the local write. The status is a snapshot,
// never reconciled against the true bus-side acknowledgment afterwards.
type StoredApplication struct {
	models.LoanApplication
	KafkaSent bool `json:"kafka_sent"`
}

// Stats aggregates the local table for status reporting.
type Stats struct {
	Total         int64   `json:"total"`
	Fraud         int64   `json:"fraud"`
	Sent          int64   `json:"sent"`
	AvgLoanFraud  float64 `json:"avg_loan_fraud"`
	AvgLoanNormal float64 `json:"avg_loan_normal"`
}

// FraudRate returns the fraction of stored applications flagged as fraud.
func (s Stats) FraudRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Fraud) / float64(s.Total)
}

// SentRate returns the fraction of rows whose publish attempt looked
// successful at insert time.
func (s Stats) SentRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Sent) / float64(s.Total)
}

// ApplicationStore is the durable keyed table of loan applications. It owns
// the table lifecycle; no other component creates or drops it.
type ApplicationStore struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *ApplicationStore {
	return &ApplicationStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Reset idempotently drops and recreates the loan_applications table, with
// loan_id as primary key and secondary indexes on application_timestamp and
// customer_id. The indexes are a query-performance aid only.
func (s *ApplicationStore) Reset(ctx context.Context) error {
	statements := []string{
		`DROP TABLE IF EXISTS loan_applications`,
		`CREATE TABLE loan_applications (
			loan_id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			application_timestamp TIMESTAMPTZ NOT NULL,
			loan_amount DOUBLE PRECISION NOT NULL,
			customer_age INTEGER NOT NULL,
			credit_score INTEGER NOT NULL,
			annual_income DOUBLE PRECISION NOT NULL,
			employment_length DOUBLE PRECISION NOT NULL,
			debt_to_income DOUBLE PRECISION NOT NULL,
			num_previous_loans INTEGER NOT NULL,
			device_fingerprint TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			application_channel TEXT NOT NULL,
			is_fraud BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			kafka_sent BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX idx_loan_applications_timestamp ON loan_applications(application_timestamp)`,
		`CREATE INDEX idx_loan_applications_customer ON loan_applications(customer_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewQueryExecutionFailedError("reset", err)
		}
	}

	s.logger.Info("loan_applications table reset", nil)
	return nil
}

// Insert appends one row with the given delivery status. A duplicate loan_id
// surfaces as a DUPLICATE_LOAN_ID error; it is never silently ignored, since
// it indicates an identity-generation defect upstream.
func (s *ApplicationStore) Insert(ctx context.Context, app models.LoanApplication, kafkaSent bool) error {
	start := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loan_applications (
			loan_id, customer_id, application_timestamp, loan_amount,
			customer_age, credit_score, annual_income, employment_length,
			debt_to_income, num_previous_loans, device_fingerprint,
			ip_address, application_channel, is_fraud, created_at, updated_at,
			kafka_sent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		app.LoanID,
		app.CustomerID,
		app.ApplicationTimestamp,
		app.LoanAmount,
		app.CustomerAge,
		app.CreditScore,
		app.AnnualIncome,
		app.EmploymentLength,
		app.DebtToIncome,
		app.NumPreviousLoans,
		app.DeviceFingerprint,
		app.IPAddress,
		string(app.ApplicationChannel),
		app.IsFraud,
		app.CreatedAt,
		app.UpdatedAt,
		kafkaSent,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return apperrors.NewDuplicateLoanIDError(app.LoanID)
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	metrics.InsertDuration.Observe(time.Since(start).Seconds())
	return nil
}

// QueryRecent returns applications with application_timestamp at or after
// since, newest first.
func (s *ApplicationStore) QueryRecent(ctx context.Context, since time.Time) ([]StoredApplication, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM loan_applications
		WHERE application_timestamp >= $1
		ORDER BY application_timestamp DESC`, since)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("query_recent", err)
	}
	defer rows.Close()

	return scanApplications(rows)
}

// QueryAll returns every stored application, newest first. Used by the
// export tool.
func (s *ApplicationStore) QueryAll(ctx context.Context) ([]StoredApplication, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM loan_applications
		ORDER BY application_timestamp DESC`)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("query_all", err)
	}
	defer rows.Close()

	return scanApplications(rows)
}

// Stats aggregates the table: total rows, fraud rows, rows whose publish
// looked successful, and average loan amount split by fraud flag.
func (s *ApplicationStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var avgFraud, avgNormal sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_fraud),
			COUNT(*) FILTER (WHERE kafka_sent),
			AVG(loan_amount) FILTER (WHERE is_fraud),
			AVG(loan_amount) FILTER (WHERE NOT is_fraud)
		FROM loan_applications`).
		Scan(&st.Total, &st.Fraud, &st.Sent, &avgFraud, &avgNormal)
	if err != nil {
		return Stats{}, apperrors.NewQueryExecutionFailedError("stats", err)
	}

	st.AvgLoanFraud = avgFraud.Float64
	st.AvgLoanNormal = avgNormal.Float64
	return st, nil
}

const selectColumns = `
	SELECT loan_id, customer_id, application_timestamp, loan_amount,
		customer_age, credit_score, annual_income, employment_length,
		debt_to_income, num_previous_loans, device_fingerprint,
		ip_address, application_channel, is_fraud, created_at, updated_at,
		kafka_sent`

func scanApplications(rows *sql.Rows) ([]StoredApplication, error) {
	var out []StoredApplication
	for rows.Next() {
		var rec StoredApplication
		var channel string
		err := rows.Scan(
			&rec.LoanID,
			&rec.CustomerID,
			&rec.ApplicationTimestamp,
			&rec.LoanAmount,
			&rec.CustomerAge,
			&rec.CreditScore,
			&rec.AnnualIncome,
			&rec.EmploymentLength,
			&rec.DebtToIncome,
			&rec.NumPreviousLoans,
			&rec.DeviceFingerprint,
			&rec.IPAddress,
			&channel,
			&rec.IsFraud,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&rec.KafkaSent,
		)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("scan", err)
		}
		rec.ApplicationChannel = models.ApplicationChannel(channel)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("rows", err)
	}
	return out, nil
}
