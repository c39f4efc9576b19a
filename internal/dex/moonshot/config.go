// =============================
// File: internal/dex/moonshot/config.go
// =============================
package moonshot

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Known Moonshot protocol addresses
var (
	// Program ID for Moonshot protocol
	ProgramID = solana.MustPublicKeyFromBase58("MoonCVVNZFSYkqNXP6bxHLPL6QQJiMagDL3qcqUQTrG")

	// Fee accounts credited on every trade
	DexFeeAccount   = solana.MustPublicKeyFromBase58("3udvfL24waJcLhskRAsStNMoNUvtyXdxrWQz4hgi953N")
	HelioFeeAccount = solana.MustPublicKeyFromBase58("5K5RtTWzzLp4P8Npi84ocf7F1vBsAu29N1irG4iiUnzt")

	// Global program config account
	ConfigAccount = solana.MustPublicKeyFromBase58("36Eru7v11oU5Pfrojyn5oY3nETA1a1iqsw2WUu6afkM9")
)

// Instruction discriminators, little-endian u64 at the start of the instruction data
const (
	BuyDiscriminator  uint64 = 16927863322537952870
	SellDiscriminator uint64 = 12502976635542562355
)

const (
	// CurveSeed is the PDA seed prefix of a mint's curve account
	CurveSeed = "token"

	DefaultUnitPrice   uint64 = 1_000_000 // micro-lamports per compute unit
	DefaultUnitBudget  uint32 = 100_000
	DefaultSlippageBps uint64 = 500
	MaxSlippageBps     uint64 = 10_000
)

// Config holds the configuration for the Moonshot DEX
type Config struct {
	// Protocol addresses
	ProgramID       solana.PublicKey
	DexFeeAccount   solana.PublicKey
	HelioFeeAccount solana.PublicKey
	ConfigAccount   solana.PublicKey

	// Compute budget
	UnitPrice  uint64
	UnitBudget uint32

	SlippageBps uint64

	// Decode options for the curve account
	Decode DecodeOptions
}

// GetDefaultConfig creates a default configuration for the Moonshot DEX
func GetDefaultConfig() *Config {
	return &Config{
		ProgramID:       ProgramID,
		DexFeeAccount:   DexFeeAccount,
		HelioFeeAccount: HelioFeeAccount,
		ConfigAccount:   ConfigAccount,
		UnitPrice:       DefaultUnitPrice,
		UnitBudget:      DefaultUnitBudget,
		SlippageBps:     DefaultSlippageBps,
	}
}

// Validate checks that every address is set and numeric settings are in range.
func (cfg *Config) Validate() error {
	if cfg.ProgramID.IsZero() {
		return errors.New("moonshot program id is required")
	}
	if cfg.DexFeeAccount.IsZero() || cfg.HelioFeeAccount.IsZero() {
		return errors.New("fee accounts are required")
	}
	if cfg.ConfigAccount.IsZero() {
		return errors.New("config account is required")
	}
	if cfg.UnitBudget == 0 {
		return errors.New("unit budget must be positive")
	}
	if cfg.SlippageBps > MaxSlippageBps {
		return fmt.Errorf("slippage %d bps exceeds %d", cfg.SlippageBps, MaxSlippageBps)
	}
	return nil
}

// LogFields returns the configuration as zap fields.
func (cfg *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("program_id", cfg.ProgramID.String()),
		zap.String("config_account", cfg.ConfigAccount.String()),
		zap.Uint64("unit_price", cfg.UnitPrice),
		zap.Uint32("unit_budget", cfg.UnitBudget),
		zap.Uint64("slippage_bps", cfg.SlippageBps),
	}
}
