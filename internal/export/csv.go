// internal/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"loanstream/internal/store"
)

// header matches the persisted schema plus an ingestion_date partition column
// derived from application_timestamp, for warehouse upload.
var header = []string{
	"loan_id", "customer_id", "application_timestamp", "loan_amount",
	"customer_age", "credit_score", "annual_income", "employment_length",
	"debt_to_income", "num_previous_loans", "device_fingerprint",
	"ip_address", "application_channel", "is_fraud", "created_at",
	"updated_at", "kafka_sent", "ingestion_date",
}

// Filename returns the timestamped export file name.
func Filename(now time.Time) string {
	return fmt.Sprintf("loan_applications_%s.csv", now.Format("20060102_150405"))
}

// WriteCSV writes all rows to w and returns how many records were written.
func WriteCSV(w io.Writer, rows []store.StoredApplication) (int, error) {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return 0, err
	}

	for _, rec := range rows {
		row := []string{
			rec.LoanID,
			rec.CustomerID,
			rec.ApplicationTimestamp.Format(time.RFC3339),
			formatFloat(rec.LoanAmount),
			strconv.Itoa(rec.CustomerAge),
			strconv.Itoa(rec.CreditScore),
			formatFloat(rec.AnnualIncome),
			formatFloat(rec.EmploymentLength),
			formatFloat(rec.DebtToIncome),
			strconv.Itoa(rec.NumPreviousLoans),
			rec.DeviceFingerprint,
			rec.IPAddress,
			string(rec.ApplicationChannel),
			strconv.FormatBool(rec.IsFraud),
			rec.CreatedAt.Format(time.RFC3339),
			rec.UpdatedAt.Format(time.RFC3339),
			strconv.FormatBool(rec.KafkaSent),
			rec.ApplicationTimestamp.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// InsertStatements renders the first limit rows as SQL INSERT statements for
// pasting into a warehouse query editor.
func InsertStatements(rows []store.StoredApplication, limit int) []string {
	if limit > len(rows) {
		limit = len(rows)
	}

	out := make([]string, 0, limit)
	for _, rec := range rows[:limit] {
		stmt := fmt.Sprintf(`INSERT INTO loan_applications VALUES (
    '%s', '%s',
    TIMESTAMP '%s',
    %s, %d, %d,
    %s, %s, %s,
    %d, '%s',
    '%s', '%s', %t,
    TIMESTAMP '%s', TIMESTAMP '%s',
    DATE '%s'
);`,
			rec.LoanID, rec.CustomerID,
			rec.ApplicationTimestamp.Format("2006-01-02 15:04:05"),
			formatFloat(rec.LoanAmount), rec.CustomerAge, rec.CreditScore,
			formatFloat(rec.AnnualIncome), formatFloat(rec.EmploymentLength), formatFloat(rec.DebtToIncome),
			rec.NumPreviousLoans, rec.DeviceFingerprint,
			rec.IPAddress, rec.ApplicationChannel, rec.IsFraud,
			rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.UpdatedAt.Format("2006-01-02 15:04:05"),
			rec.ApplicationTimestamp.Format("2006-01-02"),
		)
		out = append(out, stmt)
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
