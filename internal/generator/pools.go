// internal/generator/pools.go
package generator

import "fmt"

const (
	deviceCount       = 999
	reusedDeviceCount = 100
	suspiciousIPCount = 49
	normalIPCount     = 254
)

// buildDevicePool returns the fixed fingerprint pool DEV_0001..DEV_0999.
// Suspicious profiles draw only from the first 100 entries, which models
// device reuse across fraudulent applications.
func buildDevicePool() []string {
	pool := make([]string, deviceCount)
	for i := range pool {
		pool[i] = fmt.Sprintf("DEV_%04d", i+1)
	}
	return pool
}

// buildSuspiciousIPPool returns the 49-address pool 10.0.0.1..10.0.0.49.
func buildSuspiciousIPPool() []string {
	pool := make([]string, suspiciousIPCount)
	for i := range pool {
		pool[i] = fmt.Sprintf("10.0.0.%d", i+1)
	}
	return pool
}

// buildNormalIPPool returns the 254-address pool 192.168.1.1..192.168.1.254.
func buildNormalIPPool() []string {
	pool := make([]string, normalIPCount)
	for i := range pool {
		pool[i] = fmt.Sprintf("192.168.1.%d", i+1)
	}
	return pool
}
