// ==============================================
// File: internal/dex/moonshot/moonshot.go
// ==============================================

package moonshot

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain"
	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/moonshot-bot/internal/utils/logger"
	"github.com/rovshanmuradov/moonshot-bot/internal/wallet"
)

// Submitter sends a signed transaction and waits for its final status.
type Submitter interface {
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (*transaction.Status, error)
}

// DEX is the Moonshot DEX implementation.
type DEX struct {
	client        blockchain.Client
	submitter     Submitter
	wallet        *wallet.Wallet
	logger        *zap.Logger
	config        *Config
	errorAnalyzer *solbc.ErrorAnalyzer
}

// NewDEX creates a new instance of DEX.
func NewDEX(client blockchain.Client, submitter Submitter, w *wallet.Wallet, logger *zap.Logger, config *Config) (*DEX, error) {
	if client == nil {
		return nil, errors.New("blockchain client is required")
	}
	if submitter == nil {
		return nil, errors.New("transaction submitter is required")
	}
	if w == nil {
		return nil, errors.New("wallet is required")
	}
	if config == nil {
		config = GetDefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid moonshot config: %w", err)
	}

	logger.Info("Creating Moonshot DEX", config.LogFields()...)

	return &DEX{
		client:        client,
		submitter:     submitter,
		wallet:        w,
		logger:        logger.Named("moonshot"),
		config:        config,
		errorAnalyzer: solbc.NewErrorAnalyzer(logger),
	}, nil
}

// CurveState fetches a fresh snapshot of the mint's curve account.
func (d *DEX) CurveState(ctx context.Context, mint solana.PublicKey) (*CurveAccount, error) {
	return FetchCurveAccount(ctx, d.client, mint, d.config.ProgramID, d.config.Decode)
}

// TokensFromCollateral prices a trade of collateral lamports against the mint's current curve.
func (d *DEX) TokensFromCollateral(ctx context.Context, mint solana.PublicKey, collateral uint64, dir TradeDirection) (uint64, error) {
	curve, err := d.CurveState(ctx, mint)
	if err != nil {
		return 0, err
	}
	return TokensFromCollateral(curve, collateral, dir)
}

// CollateralFromTokens prices a trade of tokens against the mint's current curve.
func (d *DEX) CollateralFromTokens(ctx context.Context, mint solana.PublicKey, tokens uint64, dir TradeDirection) (uint64, error) {
	curve, err := d.CurveState(ctx, mint)
	if err != nil {
		return 0, err
	}
	return CollateralFromTokens(curve, tokens, dir)
}

// QuoteBuy returns the token amount collateral lamports buy right now.
func (d *DEX) QuoteBuy(ctx context.Context, mint solana.PublicKey, collateral uint64) (uint64, error) {
	return d.TokensFromCollateral(ctx, mint, collateral, Buy)
}

// QuoteSell returns the lamports received for selling tokens right now.
func (d *DEX) QuoteSell(ctx context.Context, mint solana.PublicKey, tokens uint64) (uint64, error) {
	return d.CollateralFromTokens(ctx, mint, tokens, Sell)
}

// Buy покупает токены на collateral лампортов. slippageBps == 0 означает значение из конфигурации.
func (d *DEX) Buy(ctx context.Context, mint solana.PublicKey, collateral, slippageBps uint64) (*TradeResult, error) {
	log := logger.WithOperation(d.logger, "buy")
	slippageBps, err := d.slippage(slippageBps)
	if err != nil {
		return nil, err
	}

	trade, err := d.prepareBuy(ctx, mint, collateral, slippageBps)
	if err != nil {
		log.Warn("Buy aborted", zap.String("mint", mint.String()), zap.Error(err))
		return nil, fmt.Errorf("prepare buy: %w", err)
	}

	return d.execute(ctx, log, Buy, mint, trade)
}

// Sell продаёт tokenAmount токенов; при tokenAmount == nil продаётся весь баланс кошелька.
func (d *DEX) Sell(ctx context.Context, mint solana.PublicKey, tokenAmount *uint64, slippageBps uint64) (*TradeResult, error) {
	log := logger.WithOperation(d.logger, "sell")
	slippageBps, err := d.slippage(slippageBps)
	if err != nil {
		return nil, err
	}

	var amount uint64
	if tokenAmount != nil {
		amount = *tokenAmount
	} else {
		balance, err := d.GetTokenBalance(ctx, mint)
		if err != nil {
			return nil, fmt.Errorf("get token balance: %w", err)
		}
		amount = balance
	}

	log.Info("Token balance", zap.String("mint", mint.String()), zap.Uint64("amount", amount))

	trade, err := d.prepareSell(ctx, mint, amount, slippageBps)
	if err != nil {
		log.Warn("Sell aborted", zap.String("mint", mint.String()), zap.Error(err))
		return nil, fmt.Errorf("prepare sell: %w", err)
	}

	return d.execute(ctx, log, Sell, mint, trade)
}

// GetTokenBalance возвращает баланс кошелька по минту в базовых единицах.
// Отсутствие токен-аккаунта означает нулевой баланс.
func (d *DEX) GetTokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	res, err := d.client.GetTokenAccountsByOwner(ctx, d.wallet.PublicKey, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get token accounts: %w", err)
	}
	if res == nil {
		return 0, nil
	}

	var total uint64
	for _, acc := range res.Value {
		if acc == nil || acc.Account.Data == nil {
			continue
		}
		amount, err := decodeTokenAmount(acc.Account.Data.GetBinary())
		if err != nil {
			return 0, fmt.Errorf("token account %s: %w", acc.Pubkey, err)
		}
		var carry uint64
		total, carry = bits.Add64(total, amount, 0)
		if carry != 0 {
			return 0, fmt.Errorf("token balance of %s overflows u64", mint)
		}
	}

	d.logger.Debug("Got token balance",
		zap.String("mint", mint.String()),
		zap.Int("accounts", len(res.Value)),
		zap.Uint64("balance", total))
	return total, nil
}

func (d *DEX) slippage(bps uint64) (uint64, error) {
	if bps == 0 {
		return d.config.SlippageBps, nil
	}
	if bps > MaxSlippageBps {
		return 0, fmt.Errorf("slippage %d bps exceeds %d", bps, MaxSlippageBps)
	}
	return bps, nil
}

// execute подписывает, отправляет и подтверждает подготовленную сделку.
func (d *DEX) execute(ctx context.Context, log *zap.Logger, dir TradeDirection, mint solana.PublicKey, trade *preparedTrade) (*TradeResult, error) {
	tx, err := d.createSignedTransaction(ctx, trade.instructions)
	if err != nil {
		return nil, err
	}

	result := &TradeResult{
		Direction:        dir,
		Mint:             mint,
		Signature:        tx.Signatures[0],
		TokenAmount:      trade.args.TokenAmount,
		CollateralAmount: trade.args.CollateralAmount,
		SlippageBps:      trade.args.SlippageBps,
	}

	status, err := d.submitter.SendAndConfirm(ctx, tx)
	result.Status = status
	if err != nil {
		analysis := d.errorAnalyzer.Analyze(err)
		log.Error("Trade failed", append(analysis.Fields(),
			zap.String("direction", dir.String()),
			zap.String("signature", result.Signature.String()))...)
		return result, fmt.Errorf("%s transaction %s: %w", dir, result.Signature, err)
	}

	log.Info("Trade confirmed",
		zap.String("direction", dir.String()),
		zap.String("signature", result.Signature.String()),
		zap.Uint64("token_amount", result.TokenAmount),
		zap.Uint64("collateral_lamports", result.CollateralAmount))
	return result, nil
}

// createSignedTransaction собирает транзакцию на свежем blockhash и подписывает её кошельком.
func (d *DEX) createSignedTransaction(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := d.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash,
		solana.TransactionPayer(d.wallet.PublicKey),
	)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := d.wallet.SignTransaction(tx); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return tx, nil
}
