// internal/models/application.go
package models

import "time"

// ApplicationChannel is the channel a loan application arrived through.
type ApplicationChannel string

const (
	ChannelMobileApp  ApplicationChannel = "mobile_app"
	ChannelWeb        ApplicationChannel = "web"
	ChannelCallCenter ApplicationChannel = "call_center"
)

// Channels lists every valid application channel.
var Channels = []ApplicationChannel{ChannelMobileApp, ChannelWeb, ChannelCallCenter}

// Profile is the sampled risk-correlated attribute bundle preceding identity
// and time assignment. Every field is drawn jointly from exactly one branch
// (suspicious or normal); fields are never mixed across branches.
type Profile struct {
	CustomerAge       int
	CreditScore       int
	AnnualIncome      float64
	EmploymentLength  float64
	DebtToIncome      float64
	NumPreviousLoans  int
	LoanAmount        float64
	IPAddress         string
	DeviceFingerprint string
	IsFraud           bool
}

// LoanApplication is the persisted unit: a profile plus identity, timing and
// channel fields. Field names match the stream message schema.
type LoanApplication struct {
	LoanID               string             `json:"loan_id"`
	CustomerID           string             `json:"customer_id"`
	ApplicationTimestamp time.Time          `json:"application_timestamp"`
	LoanAmount           float64            `json:"loan_amount"`
	CustomerAge          int                `json:"customer_age"`
	CreditScore          int                `json:"credit_score"`
	AnnualIncome         float64            `json:"annual_income"`
	EmploymentLength     float64            `json:"employment_length"`
	DebtToIncome         float64            `json:"debt_to_income"`
	NumPreviousLoans     int                `json:"num_previous_loans"`
	DeviceFingerprint    string             `json:"device_fingerprint"`
	IPAddress            string             `json:"ip_address"`
	ApplicationChannel   ApplicationChannel `json:"application_channel"`
	IsFraud              bool               `json:"is_fraud"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}
