// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/zigstake/event-ledger/internal/funds"
)

// Config is the process-level service configuration. The ledger's own
// Config (admin/fee/treasury) is persisted in the store; these values
// seed it on first boot and wire up the infrastructure around it.
type Config struct {
	Port        string
	DatabaseURL string // empty → in-memory store
	RedisURL    string // empty → no cache layer

	AdminID        string
	TreasuryID     string
	TreasuryFeeBps uint64
	StakeDenom     string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	cfg := &Config{
		Port:        envOr("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		AdminID:     os.Getenv("ADMIN_ID"),
		TreasuryID:  os.Getenv("TREASURY_ID"),
		StakeDenom:  envOr("STAKE_DENOM", funds.DefaultStakeDenom),
	}

	if cfg.AdminID == "" {
		return nil, fmt.Errorf("config: ADMIN_ID is required")
	}
	if cfg.TreasuryID == "" {
		return nil, fmt.Errorf("config: TREASURY_ID is required")
	}

	feeStr := envOr("TREASURY_FEE_BPS", "250")
	fee, err := strconv.ParseUint(feeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: invalid TREASURY_FEE_BPS %q: %w", feeStr, err)
	}
	cfg.TreasuryFeeBps = fee

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
