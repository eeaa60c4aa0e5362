// internal/generator/sampler.go
package generator

import (
	"math"
	"math/rand"

	"loanstream/internal/models"
)

// DefaultFraudProbability is the Bernoulli parameter for the suspicious branch.
const DefaultFraudProbability = 0.2

// Sampler draws fraud/non-fraud customer profiles from two deliberately
// correlated, bimodal distributions. All randomness comes from the injected
// source, so sampling is reproducible under a fixed seed.
type Sampler struct {
	rng           *rand.Rand
	devicePool    []string
	suspiciousIPs []string
	normalIPs     []string
}

func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{
		rng:           rng,
		devicePool:    buildDevicePool(),
		suspiciousIPs: buildSuspiciousIPPool(),
		normalIPs:     buildNormalIPPool(),
	}
}

// Sample draws one complete profile. The branch is chosen once per call and
// every field comes from that branch.
func (s *Sampler) Sample(fraudProbability float64) models.Profile {
	if s.rng.Float64() < fraudProbability {
		return s.sampleSuspicious()
	}
	return s.sampleNormal()
}

func (s *Sampler) sampleSuspicious() models.Profile {
	income := float64(s.randInt(15000, 35000))

	return models.Profile{
		CustomerAge:       s.randInt(18, 30),
		CreditScore:       s.randInt(300, 550),
		AnnualIncome:      income,
		EmploymentLength:  round1(s.randFloat(0, 2)),
		DebtToIncome:      round3(s.randFloat(0.6, 1.2)),
		NumPreviousLoans:  s.randInt(3, 10),
		LoanAmount:        float64(s.randInt(int(income*0.8), int(income*2.5))),
		IPAddress:         s.suspiciousIPs[s.rng.Intn(len(s.suspiciousIPs))],
		DeviceFingerprint: s.devicePool[s.rng.Intn(reusedDeviceCount)],
		IsFraud:           true,
	}
}

func (s *Sampler) sampleNormal() models.Profile {
	income := float64(s.randInt(40000, 120000))

	return models.Profile{
		CustomerAge:       s.randInt(25, 65),
		CreditScore:       s.randInt(600, 850),
		AnnualIncome:      income,
		EmploymentLength:  round1(s.randFloat(1, 15)),
		DebtToIncome:      round3(s.randFloat(0.1, 0.5)),
		NumPreviousLoans:  s.randInt(0, 3),
		LoanAmount:        float64(s.randInt(int(income*0.1), int(income*0.6))),
		IPAddress:         s.normalIPs[s.rng.Intn(len(s.normalIPs))],
		DeviceFingerprint: s.devicePool[s.rng.Intn(len(s.devicePool))],
		IsFraud:           false,
	}
}

// randInt draws uniformly from the inclusive range [lo, hi].
func (s *Sampler) randInt(lo, hi int) int {
	return lo + s.rng.Intn(hi-lo+1)
}

// randFloat draws uniformly from the half-open range [lo, hi).
func (s *Sampler) randFloat(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
