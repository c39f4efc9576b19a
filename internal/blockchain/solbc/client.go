// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain"
	solbcrpc "github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/rpc"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через пул RPC-узлов.
type Client struct {
	rpc    *solbcrpc.RPCClient
	logger *zap.Logger
}

// Определение ошибок
var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError проверяет, является ли ошибка "not found"
func IsAccountNotFoundError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound)
}

// NewClient создаёт новый клиент поверх списка RPC URL, логгер передаётся через dependency injection.
func NewClient(rpcURLs []string, opts solbcrpc.Options, logger *zap.Logger) (*Client, error) {
	pool, err := solbcrpc.NewClient(rpcURLs, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("create rpc pool: %w", err)
	}
	return &Client{
		rpc:    pool,
		logger: logger.Named("solbc-client"),
	}, nil
}

// GetRecentBlockhash получает последний blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo получает информацию об аккаунте.
// Для несуществующего аккаунта возвращается ошибка, оборачивающая ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfo(ctx, pubkey)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
	}
	return result, nil
}

// GetTokenAccountsByOwner получает токен-аккаунты владельца для минта.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) (*rpc.GetTokenAccountsResult, error) {
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner, mint)
	if err != nil {
		c.logger.Debug("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.String("mint", mint.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

// GetSignatureStatuses получает статусы транзакций.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// Close освобождает соединения с узлами.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
