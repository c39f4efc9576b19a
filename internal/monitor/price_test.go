// internal/monitor/price_test.go
package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/moonshot-bot/internal/dex/moonshot"
)

const (
	supply  = 1_000_000_000 * wholeToken
	million = 1_000_000 * wholeToken
	pos200M = 200_000_000 * wholeToken
)

var testMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// sequenceSource отдаёт снимки кривой по очереди, повторяя последний
type sequenceSource struct {
	mu        sync.Mutex
	positions []uint64
	err       error
	calls     int
}

func (s *sequenceSource) CurveState(_ context.Context, _ solana.PublicKey) (*moonshot.CurveAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	pos := s.positions[0]
	if len(s.positions) > 1 {
		s.positions = s.positions[1:]
	}
	return &moonshot.CurveAccount{
		TotalSupply: supply,
		CurveAmount: supply - pos,
		CurveType:   moonshot.CurveTypeLinearV1,
	}, nil
}

func TestPriceMonitor_Update(t *testing.T) {
	source := &sequenceSource{positions: []uint64{pos200M + million, pos200M + 2*million}}
	pm := NewPriceMonitor(source, testMint, million, 0, time.Second, zaptest.NewLogger(t), nil)

	first, err := pm.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pos200M+million, first.Position)
	assert.Equal(t, uint64(337759355), first.Value)
	assert.Equal(t, first.Value, first.InitialValue)
	assert.True(t, first.PercentChange.IsZero())

	second, err := pm.Update(context.Background())
	require.NoError(t, err)
	assert.Greater(t, second.Value, first.Value)
	assert.Greater(t, second.SpotPrice, first.SpotPrice)
	assert.Equal(t, first.Value, second.InitialValue)
	assert.True(t, second.PercentChange.IsPositive())
}

func TestPriceMonitor_UpdateWithCost(t *testing.T) {
	source := &sequenceSource{positions: []uint64{pos200M + million}}
	pm := NewPriceMonitor(source, testMint, million, 336124645, time.Second, zaptest.NewLogger(t), nil)

	update, err := pm.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.48", update.PercentChange.String())
}

func TestPriceMonitor_UnsellablePosition(t *testing.T) {
	// при нулевой позиции кривой продать нечего
	source := &sequenceSource{positions: []uint64{0}}
	pm := NewPriceMonitor(source, testMint, million, 0, time.Second, zaptest.NewLogger(t), nil)

	update, err := pm.Update(context.Background())
	require.NoError(t, err)
	assert.Zero(t, update.Value)
	assert.Equal(t, uint64(10), update.SpotPrice)
}

func TestPriceMonitor_UpdateError(t *testing.T) {
	source := &sequenceSource{err: moonshot.ErrCurveStateUnavailable}
	pm := NewPriceMonitor(source, testMint, million, 0, time.Second, zaptest.NewLogger(t), nil)

	_, err := pm.Update(context.Background())
	assert.True(t, errors.Is(err, moonshot.ErrCurveStateUnavailable))
}

func TestPriceMonitor_Run(t *testing.T) {
	source := &sequenceSource{positions: []uint64{pos200M}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		updates []PriceUpdate
	)
	pm := NewPriceMonitor(source, testMint, million, 0, 5*time.Millisecond, zaptest.NewLogger(t), func(u PriceUpdate) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
		if len(updates) == 3 {
			cancel()
		}
	})

	done := make(chan error, 1)
	go func() { done <- pm.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(updates), 3)
	assert.Equal(t, uint64(336124645), updates[0].Value)
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		initial, current uint64
		want             string
	}{
		{0, 100, "0"},
		{100, 100, "0"},
		{100, 150, "50"},
		{336124645, 337759355, "0.48"},
		{337759355, 336124645, "-0.48"},
	}
	for _, tt := range tests {
		got := percentChange(tt.initial, tt.current)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%d -> %d: got %s", tt.initial, tt.current, got)
	}
}
