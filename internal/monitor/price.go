// internal/monitor/price.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/dex/moonshot"
)

// Один целый токен в базовых единицах
const wholeToken uint64 = 1_000_000_000

// CurveSource отдаёт свежий снимок кривой для минта
type CurveSource interface {
	CurveState(ctx context.Context, mint solana.PublicKey) (*moonshot.CurveAccount, error)
}

// PriceUpdate - состояние позиции на момент опроса. Суммы в лампортах.
type PriceUpdate struct {
	Time          time.Time
	Position      uint64 // tokens sold by the curve
	SpotPrice     uint64 // cost of the next whole token
	Value         uint64 // what the watched amount sells for now
	InitialValue  uint64
	PercentChange decimal.Decimal // value change since start, truncated to 2 places
}

// PriceUpdateCallback is called after every successful poll
type PriceUpdateCallback func(PriceUpdate)

// PriceMonitor опрашивает кривую и пересчитывает стоимость позиции
type PriceMonitor struct {
	source       CurveSource
	mint         solana.PublicKey
	tokenAmount  uint64
	initialValue uint64
	interval     time.Duration
	logger       *zap.Logger
	callback     PriceUpdateCallback
}

// NewPriceMonitor creates a new price monitor. With initialValue == 0 the value
// seen at the first poll becomes the baseline.
func NewPriceMonitor(source CurveSource, mint solana.PublicKey, tokenAmount, initialValue uint64,
	interval time.Duration, logger *zap.Logger, callback PriceUpdateCallback) *PriceMonitor {
	return &PriceMonitor{
		source:       source,
		mint:         mint,
		tokenAmount:  tokenAmount,
		initialValue: initialValue,
		interval:     interval,
		logger:       logger.Named("price-monitor"),
		callback:     callback,
	}
}

// Run polls until ctx is cancelled. Failed polls are logged and skipped.
func (pm *PriceMonitor) Run(ctx context.Context) error {
	pm.logger.Info("Starting price monitor",
		zap.String("token_mint", pm.mint.String()),
		zap.Uint64("token_amount", pm.tokenAmount),
		zap.Duration("interval", pm.interval))

	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	for {
		pm.poll(ctx)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			pm.logger.Debug("Price monitor stopped")
			return nil
		}
	}
}

func (pm *PriceMonitor) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update, err := pm.Update(pollCtx)
	if err != nil {
		if ctx.Err() == nil {
			pm.logger.Error("Failed to get token price", zap.Error(err))
		}
		return
	}
	if pm.callback != nil {
		pm.callback(update)
	}
}

// Update fetches the curve once and prices the watched amount.
func (pm *PriceMonitor) Update(ctx context.Context) (PriceUpdate, error) {
	curve, err := pm.source.CurveState(ctx, pm.mint)
	if err != nil {
		return PriceUpdate{}, err
	}

	spot, err := moonshot.CollateralFromTokens(curve, wholeToken, moonshot.Buy)
	if err != nil {
		return PriceUpdate{}, fmt.Errorf("spot price: %w", err)
	}

	var value uint64
	if pm.tokenAmount > 0 {
		value, err = moonshot.CollateralFromTokens(curve, pm.tokenAmount, moonshot.Sell)
		// Кривая не может выкупить больше, чем продала: позиция ничего не стоит
		if err != nil && !errors.Is(err, moonshot.ErrUndefinedCollateral) {
			return PriceUpdate{}, fmt.Errorf("position value: %w", err)
		}
	}

	if pm.initialValue == 0 {
		pm.initialValue = value
	}

	return PriceUpdate{
		Time:          time.Now(),
		Position:      curve.CurvePosition(),
		SpotPrice:     spot,
		Value:         value,
		InitialValue:  pm.initialValue,
		PercentChange: percentChange(pm.initialValue, value),
	}, nil
}

func percentChange(initial, current uint64) decimal.Decimal {
	if initial == 0 {
		return decimal.Zero
	}
	from := decimal.NewFromBigInt(new(big.Int).SetUint64(initial), 0)
	to := decimal.NewFromBigInt(new(big.Int).SetUint64(current), 0)
	return to.Sub(from).Div(from).Shift(2).Truncate(2)
}
