// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/storage"
	"github.com/rovshanmuradov/moonshot-bot/internal/storage/models"
)

// Ключ advisory lock, под которым выполняются миграции
const migrationLockID = 101

const createTradesTable = `
CREATE TABLE IF NOT EXISTS trades (
	id                BIGSERIAL PRIMARY KEY,
	signature         VARCHAR(88) NOT NULL UNIQUE,
	wallet_address    VARCHAR(44) NOT NULL,
	mint              VARCHAR(44) NOT NULL,
	direction         VARCHAR(4)  NOT NULL,
	token_amount      BIGINT      NOT NULL,
	collateral_amount BIGINT      NOT NULL,
	slippage_bps      BIGINT      NOT NULL,
	status            VARCHAR(20) NOT NULL,
	error_message     TEXT        NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS trades_wallet_created_idx ON trades (wallet_address, created_at DESC);
`

const tradeColumns = `id, signature, wallet_address, mint, direction, token_amount, collateral_amount,
	slippage_bps, status, error_message, created_at, updated_at`

// postgresStorage реализует интерфейс Storage
type postgresStorage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewStorage(ctx context.Context, dsn string, logger *zap.Logger) (storage.Storage, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &postgresStorage{
		pool:   pool,
		logger: logger.Named("postgres"),
	}, nil
}

func (p *postgresStorage) Close() {
	p.pool.Close()
}

// RunMigrations создаёт таблицу журнала под advisory lock
func (p *postgresStorage) RunMigrations(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	var lockObtained bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&lockObtained); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return errors.New("another migration is in progress")
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			p.logger.Warn("Failed to release migration lock", zap.Error(err))
		}
	}()

	if _, err := conn.Exec(ctx, createTradesTable); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveTrade вставляет сделку; повторная запись с той же подписью обновляет статус
func (p *postgresStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	tokens, err := toBigint(trade.TokenAmount)
	if err != nil {
		return err
	}
	collateral, err := toBigint(trade.CollateralAmount)
	if err != nil {
		return err
	}
	slippage, err := toBigint(trade.SlippageBps)
	if err != nil {
		return err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO trades (
			signature, wallet_address, mint, direction, token_amount, collateral_amount,
			slippage_bps, status, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (signature)
		DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		trade.Signature,
		trade.WalletAddress,
		trade.Mint,
		trade.Direction,
		tokens,
		collateral,
		slippage,
		trade.Status,
		trade.ErrorMessage,
	)
	if err := row.Scan(&trade.ID, &trade.CreatedAt, &trade.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save trade %s: %w", trade.Signature, err)
	}

	p.logger.Debug("Trade saved",
		zap.String("signature", trade.Signature),
		zap.String("status", trade.Status))
	return nil
}

func (p *postgresStorage) GetTrade(ctx context.Context, signature string) (*models.Trade, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE signature = $1`, signature)
	trade, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, signature)
	}
	return trade, err
}

func (p *postgresStorage) ListTrades(ctx context.Context, walletAddress string, limit, offset int) ([]*models.Trade, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE wallet_address = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		walletAddress, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	return trades, rows.Err()
}

func (p *postgresStorage) UpdateTradeStatus(ctx context.Context, signature, status, errorMsg string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE trades SET status = $2, error_message = $3, updated_at = now()
		WHERE signature = $1`,
		signature, status, errorMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, signature)
	}
	return nil
}

func scanTrade(row pgx.Row) (*models.Trade, error) {
	var (
		t                            models.Trade
		tokens, collateral, slippage int64
	)
	err := row.Scan(
		&t.ID,
		&t.Signature,
		&t.WalletAddress,
		&t.Mint,
		&t.Direction,
		&tokens,
		&collateral,
		&slippage,
		&t.Status,
		&t.ErrorMessage,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TokenAmount = uint64(tokens)
	t.CollateralAmount = uint64(collateral)
	t.SlippageBps = uint64(slippage)
	return &t, nil
}

// toBigint проверяет, что значение помещается в BIGINT
func toBigint(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d does not fit into BIGINT", v)
	}
	return int64(v), nil
}
