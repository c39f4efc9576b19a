// =============================
// File: internal/dex/moonshot/types.go
// =============================
package moonshot

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/transaction"
)

// Currency is the on-chain collateral / market cap denomination tag.
type Currency uint8

const (
	CurrencySol Currency = 0
)

func (c Currency) String() string {
	switch c {
	case CurrencySol:
		return "Sol"
	default:
		return fmt.Sprintf("Currency(%d)", uint8(c))
	}
}

func (c Currency) valid() bool {
	return c == CurrencySol
}

// CurveType selects the pricing formula of a curve account.
type CurveType uint8

const (
	CurveTypeLinearV1 CurveType = 0
)

func (t CurveType) String() string {
	switch t {
	case CurveTypeLinearV1:
		return "LinearV1"
	default:
		return fmt.Sprintf("CurveType(%d)", uint8(t))
	}
}

func (t CurveType) valid() bool {
	return t == CurveTypeLinearV1
}

// TradeDirection is the side of a trade against the curve.
type TradeDirection uint8

const (
	Buy TradeDirection = iota
	Sell
)

func (d TradeDirection) String() string {
	if d == Sell {
		return "SELL"
	}
	return "BUY"
}

// transform applies the direction's sign convention to the quadratic coefficients.
// Selling walks the curve backwards, so b and c flip sign.
func (d TradeDirection) transform(b, c decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if d == Sell {
		return b.Neg(), c.Neg()
	}
	return b, c
}

// root picks the economically valid root: x1 for buys, x2 for sells.
func (d TradeDirection) root(x1, x2 decimal.Decimal) decimal.Decimal {
	if d == Sell {
		return x2
	}
	return x1
}

// CurveAccount is a decoded snapshot of a token's curve account.
// It is fetched per request and never cached: reserves move every block.
type CurveAccount struct {
	Discriminator      [8]byte
	TotalSupply        uint64
	CurveAmount        uint64
	Mint               solana.PublicKey
	Decimals           uint8
	CollateralCurrency Currency
	CurveType          CurveType
	MarketcapThreshold uint64
	MarketcapCurrency  Currency
	MigrationFee       uint64
	CoefB              uint32
	Bump               uint8
}

// CurvePosition returns the number of tokens already sold, the x-axis position on the curve.
func (a *CurveAccount) CurvePosition() uint64 {
	return a.TotalSupply - a.CurveAmount
}

// TradeResult описывает итог отправленной сделки
type TradeResult struct {
	Direction        TradeDirection
	Mint             solana.PublicKey
	Signature        solana.Signature
	TokenAmount      uint64
	CollateralAmount uint64
	SlippageBps      uint64
	Status           *transaction.Status
}
