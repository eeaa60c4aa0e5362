// internal/generator/factory.go
package generator

import (
	"encoding/hex"
	"math/rand"
	"strings"
	"time"

	"loanstream/internal/models"

	"github.com/google/uuid"
)

// DefaultMaxDaysAgo bounds how far back historical batch records are dated.
const DefaultMaxDaysAgo = 90

// Factory combines a sampled profile with identity, channel and timing fields
// into a complete loan application.
type Factory struct {
	rng *rand.Rand
}

func NewFactory(rng *rand.Rand) *Factory {
	return &Factory{rng: rng}
}

// Build assembles an application dated at now. loan_id and customer_id carry
// an 8-hex-character random suffix, enough entropy that collisions are
// negligible at the configured generation volumes.
func (f *Factory) Build(profile models.Profile, now time.Time) models.LoanApplication {
	return f.buildAt(profile, now)
}

// BuildBackdated assembles a historical application. The timestamp is drawn
// uniformly from [now - maxDaysAgo days, now - 1 day], and
// application_timestamp, created_at and updated_at all carry that same
// backdated instant.
func (f *Factory) BuildBackdated(profile models.Profile, now time.Time, maxDaysAgo int) models.LoanApplication {
	daysAgo := 1 + f.rng.Intn(maxDaysAgo)
	return f.buildAt(profile, now.AddDate(0, 0, -daysAgo))
}

func (f *Factory) buildAt(profile models.Profile, ts time.Time) models.LoanApplication {
	return models.LoanApplication{
		LoanID:               "LOAN_" + shortToken(),
		CustomerID:           "CUST_" + shortToken(),
		ApplicationTimestamp: ts,
		LoanAmount:           profile.LoanAmount,
		CustomerAge:          profile.CustomerAge,
		CreditScore:          profile.CreditScore,
		AnnualIncome:         profile.AnnualIncome,
		EmploymentLength:     profile.EmploymentLength,
		DebtToIncome:         profile.DebtToIncome,
		NumPreviousLoans:     profile.NumPreviousLoans,
		DeviceFingerprint:    profile.DeviceFingerprint,
		IPAddress:            profile.IPAddress,
		ApplicationChannel:   models.Channels[f.rng.Intn(len(models.Channels))],
		IsFraud:              profile.IsFraud,
		CreatedAt:            ts,
		UpdatedAt:            ts,
	}
}

// shortToken returns the first 8 hex characters of a fresh UUID, uppercased.
func shortToken() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:4]))
}
