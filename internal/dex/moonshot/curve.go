// =============================
// File: internal/dex/moonshot/curve.go
// =============================
package moonshot

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// workScale is the number of fractional digits every intermediate is quantized to.
	workScale int32 = 20

	// divScale is the precision a quotient is carried to before it is quantized.
	divScale int32 = 40
)

var (
	// CoefA is the slope coefficient of the LinearV1 curve (1.63471e-15).
	CoefA = decimal.New(163471, -20)

	// CoefB is the LinearV1 intercept in lamports per whole token.
	CoefB = decimal.NewFromInt(10)

	tokenDecimals      = decimal.New(1, 9)
	collateralDecimals = decimal.New(1, 9)

	half     = decimal.New(5, -1)
	two      = decimal.NewFromInt(2)
	four     = decimal.NewFromInt(4)
	minusTwo = decimal.NewFromInt(-2)
)

// Curve converts between token and collateral amounts at a given curve position.
// All amounts are in base units (9 decimals). Implementations are pure.
type Curve interface {
	TokensFromCollateral(position, collateral uint64, dir TradeDirection) (uint64, error)
	CollateralFromTokens(position, tokens uint64, dir TradeDirection) (uint64, error)
}

// LinearV1 prices the linear-price curve, p(x) = A·x + B, whose cost integral is quadratic.
type LinearV1 struct {
	A decimal.Decimal
	B decimal.Decimal
}

// NewLinearV1 returns the LinearV1 curve with the program's coefficients.
func NewLinearV1() LinearV1 {
	return LinearV1{A: CoefA, B: CoefB}
}

var curves = map[CurveType]Curve{
	CurveTypeLinearV1: NewLinearV1(),
}

// CurveFor returns the pricing curve for a curve type tag.
func CurveFor(t CurveType) (Curve, error) {
	c, ok := curves[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurve, t)
	}
	return c, nil
}

// TokensFromCollateral returns the token amount that collateral buys (Buy) or
// the token amount that must be sold to receive collateral (Sell).
func TokensFromCollateral(account *CurveAccount, collateral uint64, dir TradeDirection) (uint64, error) {
	c, err := CurveFor(account.CurveType)
	if err != nil {
		return 0, err
	}
	return c.TokensFromCollateral(account.CurvePosition(), collateral, dir)
}

// CollateralFromTokens returns the collateral paid for (Buy) or received for (Sell) tokens.
func CollateralFromTokens(account *CurveAccount, tokens uint64, dir TradeDirection) (uint64, error) {
	c, err := CurveFor(account.CurveType)
	if err != nil {
		return 0, err
	}
	return c.CollateralFromTokens(account.CurvePosition(), tokens, dir)
}

// TokensFromCollateral solves A·x² + b·x + c = 0 for the token count x, where
// b = 2(A·m + B/1e9) and c = −2y. The root is rounded to a whole token.
func (l LinearV1) TokensFromCollateral(position, collateral uint64, dir TradeDirection) (uint64, error) {
	y := toReal(new(big.Int).SetUint64(collateral), collateralDecimals)
	m := toReal(new(big.Int).SetUint64(position), tokenDecimals)

	b := quantize(l.A.Mul(m).Add(l.intercept()).Mul(two))
	c := quantize(y.Mul(minusTwo))
	b, c = dir.transform(b, c)

	disc := quantize(b.Mul(b).Sub(four.Mul(l.A).Mul(c)))
	if disc.IsNegative() {
		return 0, fmt.Errorf("%w: discriminant %s", ErrNoRealRoot, disc.String())
	}

	sqrtDisc := sqrt(disc)
	twoA := quantize(two.Mul(l.A))

	x1 := quantize(b.Neg().Add(sqrtDisc).DivRound(twoA, divScale))
	x2 := quantize(b.Neg().Sub(sqrtDisc).DivRound(twoA, divScale))

	x := dir.root(x1, x2).RoundBank(0)
	if x.IsNegative() {
		return 0, fmt.Errorf("%w: root %s is negative", ErrNoRealRoot, x.String())
	}

	amount := x.Mul(tokenDecimals).BigInt()
	if !amount.IsUint64() {
		return 0, fmt.Errorf("%w: token amount %s overflows u64", ErrNoRealRoot, amount.String())
	}
	return amount.Uint64(), nil
}

// CollateralFromTokens evaluates the cost integral between m and m+n:
// (A/2)·n·(2m + n) + (B/1e9)·n. A sell first moves the position back by n.
func (l LinearV1) CollateralFromTokens(position, tokens uint64, dir TradeDirection) (uint64, error) {
	pos := new(big.Int).SetUint64(position)
	if dir == Sell {
		// кривая не выкупает больше, чем продала
		if tokens > position {
			return 0, fmt.Errorf("%w: selling %d tokens at position %d", ErrUndefinedCollateral, tokens, position)
		}
		pos.Sub(pos, new(big.Int).SetUint64(tokens))
	}

	n := toReal(new(big.Int).SetUint64(tokens), tokenDecimals)
	m := toReal(pos, tokenDecimals)

	cost := half.Mul(l.A).Mul(n).Mul(two.Mul(m).Add(n)).Add(l.intercept().Mul(n))
	result := quantize(cost.Mul(collateralDecimals)).RoundBank(0)

	if result.Sign() <= 0 {
		return 0, fmt.Errorf("%w: got %s", ErrUndefinedCollateral, result.String())
	}
	amount := result.BigInt()
	if !amount.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows u64", ErrUndefinedCollateral, amount.String())
	}
	return amount.Uint64(), nil
}

func (l LinearV1) intercept() decimal.Decimal {
	return l.B.DivRound(collateralDecimals, divScale)
}

// toReal converts a base-unit amount into whole units at working scale.
func toReal(v *big.Int, scale decimal.Decimal) decimal.Decimal {
	return quantize(decimal.NewFromBigInt(v, 0).DivRound(scale, divScale))
}

func quantize(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(workScale)
}

// sqrt returns √d rounded to nearest at workScale. d must be non-negative and
// carry at most workScale fractional digits.
func sqrt(d decimal.Decimal) decimal.Decimal {
	// √d·10^s = √(d·10^2s), so the integer square root of the scaled value
	// is the floor of the result's coefficient.
	n := d.Shift(2 * workScale).BigInt()
	r := new(big.Int).Sqrt(n)

	// (r + ½)² ≤ n  ⇔  (2r + 1)² ≤ 4n; equality never holds for integers.
	odd := new(big.Int).Lsh(r, 1)
	odd.Add(odd, big.NewInt(1))
	if new(big.Int).Mul(odd, odd).Cmp(new(big.Int).Lsh(n, 2)) <= 0 {
		r.Add(r, big.NewInt(1))
	}
	return decimal.NewFromBigInt(r, -workScale)
}
