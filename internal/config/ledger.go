package config

import (
	"os"
	"strconv"
)

type LedgerConfig struct {
	PlatformFeeRate         float64 // fraction of an investment taken as platform fee
	BalanceTolerance        float64 // max |sum of entries| still considered balanced
	ReconciliationTolerance float64 // max |discrepancy| still considered matched
	DefaultCurrency         string
	ReferencePrefix         string
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		PlatformFeeRate:         getEnvAsFloat("LEDGER_PLATFORM_FEE_RATE", 0.02),
		BalanceTolerance:        getEnvAsFloat("LEDGER_BALANCE_TOLERANCE", 0.0001),
		ReconciliationTolerance: getEnvAsFloat("LEDGER_RECONCILIATION_TOLERANCE", 0.01),
		DefaultCurrency:         getEnv("LEDGER_DEFAULT_CURRENCY", "NGN"),
		ReferencePrefix:         getEnv("LEDGER_REFERENCE_PREFIX", "TRX"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
