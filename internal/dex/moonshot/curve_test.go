package moonshot

import (
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lamportsPerSol = uint64(1_000_000_000)
	tokenUnit      = uint64(1_000_000_000)
	totalSupply    = 1_000_000_000 * tokenUnit

	pos200M = 200_000_000 * tokenUnit
)

// accountAt returns a LinearV1 snapshot with the given number of tokens sold.
func accountAt(position uint64) *CurveAccount {
	return &CurveAccount{
		TotalSupply: totalSupply,
		CurveAmount: totalSupply - position,
		Decimals:    9,
		CurveType:   CurveTypeLinearV1,
		CoefB:       10,
	}
}

func TestTokensFromCollateral_Buy(t *testing.T) {
	tests := []struct {
		name       string
		position   uint64
		collateral uint64
		want       uint64
	}{
		{"1 SOL at start", 0, lamportsPerSol, 29391577000000000},
		{"0.01 SOL at start", 0, lamportsPerSol / 100, 929420000000000},
		{"1 SOL at 200M sold", pos200M, lamportsPerSol, 2946806000000000},
		{"5 SOL at 200M sold", pos200M, 5 * lamportsPerSol, 14340485000000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TokensFromCollateral(accountAt(tt.position), tt.collateral, Buy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, got%tokenUnit, "result is a whole number of tokens")
		})
	}
}

func TestTokensFromCollateral_Sell(t *testing.T) {
	got, err := TokensFromCollateral(accountAt(pos200M), lamportsPerSol, Sell)
	require.NoError(t, err)
	assert.Equal(t, uint64(2989549000000000), got)

	got, err = TokensFromCollateral(accountAt(100_000_000*tokenUnit), lamportsPerSol/100, Sell)
	require.NoError(t, err)
	assert.Equal(t, uint64(57664000000000), got)
}

func TestTokensFromCollateral_Deterministic(t *testing.T) {
	acc := accountAt(0)

	first, err := TokensFromCollateral(acc, lamportsPerSol, Buy)
	require.NoError(t, err)
	second, err := TokensFromCollateral(acc, lamportsPerSol, Buy)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var wg sync.WaitGroup
	results := make([]uint64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = TokensFromCollateral(acc, lamportsPerSol, Buy)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, first, r)
	}
}

func TestTokensFromCollateral_NegativeDiscriminant(t *testing.T) {
	// нельзя получить 1 SOL за продажу, если ещё ничего не продано
	_, err := TokensFromCollateral(accountAt(0), lamportsPerSol, Sell)
	assert.ErrorIs(t, err, ErrNoRealRoot)
}

func TestTokensFromCollateral_Overflow(t *testing.T) {
	_, err := TokensFromCollateral(accountAt(0), math.MaxUint64, Buy)
	assert.ErrorIs(t, err, ErrNoRealRoot)
}

func TestTokensFromCollateral_Monotonic(t *testing.T) {
	want := []uint64{6522617000000000, 10678938000000000, 13993860000000000, 16834930000000000, 19361140000000000}

	acc := accountAt(0)
	var prev uint64
	for i, w := range want {
		collateral := uint64(i+1) * lamportsPerSol / 10
		got, err := TokensFromCollateral(acc, collateral, Buy)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		assert.Greater(t, got, prev)
		prev = got
	}
}

func TestCollateralFromTokens(t *testing.T) {
	million := 1_000_000 * tokenUnit

	tests := []struct {
		name     string
		position uint64
		tokens   uint64
		dir      TradeDirection
		want     uint64
	}{
		{"buy 1M at start", 0, million, Buy, 10817355},
		{"buy 1M at 200M sold", pos200M, million, Buy, 337759355},
		{"sell 1M at 200M sold", pos200M, million, Sell, 336124645},
		{"sell 1M just bought", pos200M + million, million, Sell, 337759355},
		{"fractional tokens", 987654321, 123456789, Buy, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CollateralFromTokens(accountAt(tt.position), tt.tokens, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollateralFromTokens_Undefined(t *testing.T) {
	// один базовый юнит стоит меньше половины лампорта
	_, err := CollateralFromTokens(accountAt(0), 1, Buy)
	assert.ErrorIs(t, err, ErrUndefinedCollateral)

	// продажа больше, чем продано кривой, уводит позицию в минус
	_, err = CollateralFromTokens(accountAt(100_000_000*tokenUnit), totalSupply, Sell)
	assert.ErrorIs(t, err, ErrUndefinedCollateral)

	// небольшой перебор тоже отклоняется, хотя формула дала бы положительную сумму
	_, err = CollateralFromTokens(accountAt(0), 1_000_000*tokenUnit, Sell)
	assert.ErrorIs(t, err, ErrUndefinedCollateral)
	_, err = CollateralFromTokens(accountAt(999_999*tokenUnit), 1_000_000*tokenUnit, Sell)
	assert.ErrorIs(t, err, ErrUndefinedCollateral)

	// продажа ровно до начала кривой допустима
	got, err := CollateralFromTokens(accountAt(1_000_000*tokenUnit), 1_000_000*tokenUnit, Sell)
	require.NoError(t, err)
	assert.Equal(t, uint64(10817355), got)
}

func TestCollateralFromTokens_Monotonic(t *testing.T) {
	want := []uint64{10817355, 23269420, 37356195, 53077680, 70433875}

	acc := accountAt(0)
	var prev uint64
	for i, w := range want {
		tokens := uint64(i+1) * 1_000_000 * tokenUnit
		got, err := CollateralFromTokens(acc, tokens, Buy)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		assert.Greater(t, got, prev)
		prev = got
	}
}

func TestDirectionSymmetry(t *testing.T) {
	million := 1_000_000 * tokenUnit
	acc := accountAt(pos200M)

	paid, err := CollateralFromTokens(acc, million, Buy)
	require.NoError(t, err)

	// продажа в той же точке кривой
	received, err := CollateralFromTokens(acc, million, Sell)
	require.NoError(t, err)
	assert.LessOrEqual(t, received, paid)

	// продажа сразу после покупки
	afterBuy := accountAt(pos200M + million)
	received, err = CollateralFromTokens(afterBuy, million, Sell)
	require.NoError(t, err)
	assert.LessOrEqual(t, received, paid)
}

func TestRoundTrip_WholeTokens(t *testing.T) {
	tests := []struct {
		tokens     uint64 // whole tokens
		collateral uint64
		back       uint64
	}{
		{1, 337, 1 * tokenUnit},
		{1_000, 336943, 1_000 * tokenUnit},
		{1_000_000, 337759355, 999_999 * tokenUnit},
		{29_391_234, 10609208899, 29_391_233 * tokenUnit},
		{123_456_789, 54055557999, 123_456_790 * tokenUnit},
	}

	acc := accountAt(pos200M)
	for _, tt := range tests {
		t.Run(strconv.FormatUint(tt.tokens, 10), func(t *testing.T) {
			collateral, err := CollateralFromTokens(acc, tt.tokens*tokenUnit, Buy)
			require.NoError(t, err)
			assert.Equal(t, tt.collateral, collateral)

			back, err := TokensFromCollateral(acc, collateral, Buy)
			require.NoError(t, err)
			assert.Equal(t, tt.back, back)

			// TokensFromCollateral rounds its root to whole tokens, as the program does,
			// so the round trip can drift by up to one whole token (1e9 base units), not one unit.
			diff := int64(back) - int64(tt.tokens*tokenUnit)
			assert.LessOrEqual(t, abs(diff), int64(tokenUnit))
		})
	}
}

func TestCurveFor(t *testing.T) {
	c, err := CurveFor(CurveTypeLinearV1)
	require.NoError(t, err)
	assert.Equal(t, NewLinearV1(), c)

	_, err = CurveFor(CurveType(3))
	assert.ErrorIs(t, err, ErrUnsupportedCurve)

	acc := accountAt(0)
	acc.CurveType = CurveType(3)
	_, err = TokensFromCollateral(acc, lamportsPerSol, Buy)
	assert.ErrorIs(t, err, ErrUnsupportedCurve)
	_, err = CollateralFromTokens(acc, tokenUnit, Buy)
	assert.ErrorIs(t, err, ErrUnsupportedCurve)
}

func TestSqrt(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "0"},
		{"4", "2"},
		{"2", "1.4142135623730950488"},
		{"0.00000000000000000001", "0.0000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := sqrt(decimal.RequireFromString(tt.in))
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "sqrt(%s) = %s, want %s", tt.in, got, want)
		})
	}
}

func TestTradeDirection(t *testing.T) {
	b, c := decimal.NewFromInt(3), decimal.NewFromInt(-5)

	gb, gc := Buy.transform(b, c)
	assert.True(t, gb.Equal(b))
	assert.True(t, gc.Equal(c))

	gb, gc = Sell.transform(b, c)
	assert.True(t, gb.Equal(b.Neg()))
	assert.True(t, gc.Equal(c.Neg()))

	x1, x2 := decimal.NewFromInt(1), decimal.NewFromInt(2)
	assert.True(t, Buy.root(x1, x2).Equal(x1))
	assert.True(t, Sell.root(x1, x2).Equal(x2))

	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
