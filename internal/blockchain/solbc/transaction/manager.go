// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain"
	solbcrpc "github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/rpc"
)

const sendInitialInterval = 250 * time.Millisecond

type Manager struct {
	client    Client
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	metrics   *Metrics

	sendInterval time.Duration
}

func NewManager(client Client, logger *zap.Logger, config Config, reg prometheus.Registerer) *Manager {
	if config.SendRetries == 0 {
		config.SendRetries = DefaultConfig().SendRetries
	}
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultConfig().SendTimeout
	}

	metrics := NewMetrics(reg)
	return &Manager{
		client:       client,
		logger:       logger.Named("tx-manager"),
		config:       config,
		validator:    NewValidator(logger),
		monitor:      NewMonitor(client, logger, config, metrics),
		metrics:      metrics,
		sendInterval: sendInitialInterval,
	}
}

// SendAndConfirm проверяет, отправляет и дожидается подтверждения подписанной транзакции.
// Если транзакция отправлена, но не подтверждена, возвращается статус с её подписью вместе с ошибкой.
func (tm *Manager) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*Status, error) {
	defer tm.metrics.TrackTransaction(time.Now())

	if err := tm.validator.ValidateTransaction(tx); err != nil {
		tm.logger.Error("Transaction validation failed", zap.Error(err))
		return nil, err
	}

	signature, err := tm.Send(ctx, tx)
	if err != nil {
		tm.logger.Error("Failed to send transaction", zap.Error(err))
		return nil, err
	}

	status, err := tm.monitor.AwaitConfirmation(ctx, signature)
	if err != nil {
		tm.logger.Error("Transaction confirmation failed",
			zap.String("signature", signature.String()),
			zap.Error(err))
		if status == nil {
			status = &Status{Signature: signature, Status: StatusPending, Timestamp: time.Now()}
		}
		return status, err
	}

	return status, nil
}

// Send отправляет транзакцию, повторяя попытки с экспоненциальной задержкой
// только для временных ошибок узла.
func (tm *Manager) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = tm.sendInterval
	policy.MaxInterval = tm.sendInterval * 8

	opts := blockchain.TransactionOptions{
		SkipPreflight:       tm.config.SkipPreflight,
		PreflightCommitment: tm.config.PreflightCommitment,
	}

	operation := func() (solana.Signature, error) {
		tm.metrics.sendAttempts.Inc()
		signature, err := tm.client.SendTransactionWithOpts(ctx, tx, opts)
		if err != nil {
			tm.metrics.sendFailures.Inc()
			if !solbcrpc.IsRetryableError(err) {
				return solana.Signature{}, backoff.Permanent(err)
			}
			tm.logger.Warn("Retrying transaction send", zap.Error(err))
			return solana.Signature{}, err
		}
		return signature, nil
	}

	signature, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tm.config.SendRetries),
		backoff.WithMaxElapsedTime(tm.config.SendTimeout))
	if err != nil {
		return solana.Signature{}, err
	}

	tm.logger.Info("Transaction sent", zap.String("signature", signature.String()))
	return signature, nil
}
