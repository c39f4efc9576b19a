// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var errPending = errors.New("transaction not confirmed yet")

type Monitor struct {
	client  Client
	logger  *zap.Logger
	config  Config
	metrics *Metrics
}

func NewMonitor(client Client, logger *zap.Logger, config Config, metrics *Metrics) *Monitor {
	if config.ConfirmRetries == 0 {
		config.ConfirmRetries = DefaultConfig().ConfirmRetries
	}
	if config.ConfirmInterval <= 0 {
		config.ConfirmInterval = DefaultConfig().ConfirmInterval
	}
	return &Monitor{
		client:  client,
		logger:  logger.Named("tx-monitor"),
		config:  config,
		metrics: metrics,
	}
}

func (m *Monitor) GetTransactionStatus(ctx context.Context, signature solana.Signature) (*Status, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return &Status{
			Signature: signature,
			Status:    StatusPending,
			Timestamp: time.Now(),
		}, nil
	}

	status := response.Value[0]
	txStatus := &Status{
		Signature: signature,
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = StatusFinalized
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = StatusConfirmed
	default:
		txStatus.Status = StatusPending
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = StatusFailed
	}

	return txStatus, nil
}

// AwaitConfirmation опрашивает статус подписи не более ConfirmRetries раз с интервалом
// ConfirmInterval. Ошибка исполнения на чейне возвращается сразу как ErrTransactionFailed,
// исчерпание попыток - как ErrConfirmationTimeout.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*Status, error) {
	var attempts uint

	operation := func() (*Status, error) {
		attempts++
		status, err := m.GetTransactionStatus(ctx, signature)
		if err != nil {
			return nil, err
		}
		status.Attempts = attempts

		switch status.Status {
		case StatusFailed:
			return status, backoff.Permanent(fmt.Errorf("%w: %s", ErrTransactionFailed, status.Error))
		case StatusConfirmed, StatusFinalized:
			return status, nil
		default:
			return status, errPending
		}
	}

	notify := func(err error, next time.Duration) {
		m.logger.Debug("Awaiting confirmation",
			zap.String("signature", signature.String()),
			zap.Uint("attempt", attempts),
			zap.Duration("next_check", next),
			zap.Error(err))
	}

	status, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(m.config.ConfirmInterval)),
		backoff.WithMaxTries(m.config.ConfirmRetries),
		backoff.WithNotify(notify))

	switch {
	case err == nil:
		m.metrics.confirmed.Inc()
		m.logger.Info("Transaction confirmed",
			zap.String("signature", signature.String()),
			zap.String("status", status.Status),
			zap.Uint("attempts", attempts))
		return status, nil
	case errors.Is(err, ErrTransactionFailed):
		m.metrics.failed.Inc()
		return status, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		m.metrics.timedOut.Inc()
		return nil, fmt.Errorf("%w after %d checks: %v", ErrConfirmationTimeout, attempts, err)
	}
}
