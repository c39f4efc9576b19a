// ====================================
// File: cmd/moonshot/amounts.go
// ====================================
package main

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// SOL и токены Moonshot имеют 9 знаков после запятой
const amountDecimals int32 = 9

// parseAmount переводит десятичную строку ("0.25") в базовые единицы.
func parseAmount(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount %q must be positive", s)
	}

	units := d.Shift(amountDecimals)
	if !units.Equal(units.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, amountDecimals)
	}

	n := units.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return n.Uint64(), nil
}

// formatAmount печатает базовые единицы как десятичное число.
func formatAmount(units uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -amountDecimals).String()
}
