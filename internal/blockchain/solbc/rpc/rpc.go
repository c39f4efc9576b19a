// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Основные константы
const (
	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
	reqTimeout    = 10 * time.Second
)

// Options настраивает пул узлов.
type Options struct {
	// RateLimit - допустимое число запросов в секунду на весь пул; 0 отключает лимит.
	RateLimit float64
	// Burst - размер пачки для лимитера. По умолчанию равен 1.
	Burst int
}

// RPCClient распределяет запросы по нескольким RPC-узлам по кругу
type RPCClient struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.Mutex
	limiter *rate.Limiter
	logger  *zap.Logger
	delay   time.Duration
}

// NewClient создает новый RPC клиент
func NewClient(urls []string, opts Options, logger *zap.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &RPCClient{
		nodes:   nodes,
		urls:    append([]string(nil), urls...),
		limiter: limiter,
		logger:  logger.Named("rpc-client"),
		delay:   retryDelay,
	}, nil
}

// next возвращает текущий узел и сдвигает указатель на следующий
func (c *RPCClient) next() (*solanarpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, url := c.nodes[c.current], c.urls[c.current]
	c.current = (c.current + 1) % len(c.nodes)
	return node, url
}

// ExecuteWithRetry выполняет RPC-запрос с автоматическим переключением узлов при ошибке.
// Неповторяемые ошибки (см. IsRetryableError) возвращаются сразу.
func (c *RPCClient) ExecuteWithRetry(ctx context.Context, method string, operation func(*solanarpc.Client) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err := c.limiter.Wait(timeoutCtx); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return NewError(ErrTimeout, "", method)
		}

		node, url := c.next()

		err := operation(node)
		if err == nil {
			return nil
		}
		lastErr = NewError(err, url, method)

		if !IsRetryableError(err) {
			return lastErr
		}

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if attempt < retryAttempts-1 {
			select {
			case <-timeoutCtx.Done():
				return lastErr
			case <-time.After(c.delay):
			}
		}
	}

	c.logger.Warn("All RPC attempts failed",
		zap.String("method", method),
		zap.Error(lastErr))
	return lastErr
}

// GetAccountInfo получает информацию об аккаунте
func (c *RPCClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	var result *solanarpc.GetAccountInfoResult
	err := c.ExecuteWithRetry(ctx, "getAccountInfo", func(client *solanarpc.Client) error {
		var err error
		result, err = client.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		return err
	})
	return result, err
}

// GetLatestBlockhash получает последний blockhash
func (c *RPCClient) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var result *solanarpc.GetLatestBlockhashResult
	err := c.ExecuteWithRetry(ctx, "getLatestBlockhash", func(client *solanarpc.Client) error {
		var err error
		result, err = client.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
		return err
	})
	return result, err
}

// GetTokenAccountsByOwner возвращает токен-аккаунты владельца, отфильтрованные по минту
func (c *RPCClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint solana.PublicKey) (*solanarpc.GetTokenAccountsResult, error) {
	var result *solanarpc.GetTokenAccountsResult
	err := c.ExecuteWithRetry(ctx, "getTokenAccountsByOwner", func(client *solanarpc.Client) error {
		var err error
		result, err = client.GetTokenAccountsByOwner(ctx, owner,
			&solanarpc.GetTokenAccountsConfig{Mint: &mint},
			&solanarpc.GetTokenAccountsOpts{
				Commitment: solanarpc.CommitmentConfirmed,
				Encoding:   solana.EncodingBase64,
			})
		return err
	})
	return result, err
}

// GetSignatureStatuses получает статусы транзакций
func (c *RPCClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error) {
	var result *solanarpc.GetSignatureStatusesResult
	err := c.ExecuteWithRetry(ctx, "getSignatureStatuses", func(client *solanarpc.Client) error {
		var err error
		result, err = client.GetSignatureStatuses(ctx, false, signatures...)
		return err
	})
	return result, err
}

// SendTransactionWithOpts отправляет транзакцию
func (c *RPCClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error) {
	var signature solana.Signature
	err := c.ExecuteWithRetry(ctx, "sendTransaction", func(client *solanarpc.Client) error {
		var err error
		signature, err = client.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return signature, err
}

// Close закрывает соединения со всеми узлами
func (c *RPCClient) Close() error {
	var firstErr error
	for _, node := range c.nodes {
		if err := node.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
