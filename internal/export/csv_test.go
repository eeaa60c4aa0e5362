package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanstream/internal/models"
	"loanstream/internal/store"
)

func testRow(loanID string, sent bool) store.StoredApplication {
	ts := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	return store.StoredApplication{
		LoanApplication: models.LoanApplication{
			LoanID:               loanID,
			CustomerID:           "CUST_5E6F7A8B",
			ApplicationTimestamp: ts,
			LoanAmount:           25000,
			CustomerAge:          34,
			CreditScore:          720,
			AnnualIncome:         85000,
			EmploymentLength:     6.5,
			DebtToIncome:         0.25,
			NumPreviousLoans:     1,
			DeviceFingerprint:    "DEV_0342",
			IPAddress:            "192.168.1.42",
			ApplicationChannel:   models.ChannelWeb,
			IsFraud:              false,
			CreatedAt:            ts,
			UpdatedAt:            ts,
		},
		KafkaSent: sent,
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 28, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "loan_applications_20260828_140509.csv", Filename(now))
}

func TestWriteCSV(t *testing.T) {
	rows := []store.StoredApplication{
		testRow("LOAN_1A2B3C4D", true),
		testRow("LOAN_99887766", false),
	}

	var buf bytes.Buffer
	written, err := WriteCSV(&buf, rows)

	require.NoError(t, err)
	assert.Equal(t, 2, written)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, header, records[0])

	first := records[1]
	require.Len(t, first, len(header))
	assert.Equal(t, "LOAN_1A2B3C4D", first[0])
	assert.Equal(t, "CUST_5E6F7A8B", first[1])
	assert.Equal(t, "2026-08-27T10:30:00Z", first[2])
	assert.Equal(t, "25000", first[3])
	assert.Equal(t, "6.5", first[7])
	assert.Equal(t, "web", first[12])
	assert.Equal(t, "false", first[13])
	assert.Equal(t, "true", first[16])

	// ingestion_date is the day component of application_timestamp.
	assert.Equal(t, "2026-08-27", first[17])

	assert.Equal(t, "false", records[2][16])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	written, err := WriteCSV(&buf, nil)

	require.NoError(t, err)
	assert.Zero(t, written)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "the header is always written")
}

func TestInsertStatements(t *testing.T) {
	rows := []store.StoredApplication{
		testRow("LOAN_1A2B3C4D", true),
		testRow("LOAN_99887766", false),
		testRow("LOAN_AABBCCDD", true),
	}

	stmts := InsertStatements(rows, 2)
	require.Len(t, stmts, 2)

	assert.Contains(t, stmts[0], "INSERT INTO loan_applications VALUES")
	assert.Contains(t, stmts[0], "'LOAN_1A2B3C4D'")
	assert.Contains(t, stmts[0], "TIMESTAMP '2026-08-27 10:30:00'")
	assert.Contains(t, stmts[0], "DATE '2026-08-27'")
	assert.Contains(t, stmts[1], "'LOAN_99887766'")
}

func TestInsertStatements_LimitClamps(t *testing.T) {
	rows := []store.StoredApplication{testRow("LOAN_1A2B3C4D", true)}
	assert.Len(t, InsertStatements(rows, 10), 1)
	assert.Empty(t, InsertStatements(nil, 5))
}
