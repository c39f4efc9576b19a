// =============================
// File: internal/dex/moonshot/trade.go
// =============================
package moonshot

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Сумма залога в sell-инструкции округляется до 5 знаков SOL
const quotePrecision int32 = 5

// preparedTrade - инструкции сделки и посчитанные для неё суммы
type preparedTrade struct {
	instructions []solana.Instruction
	args         TradeArgs
}

// tradeAccounts собирает аккаунты инструкции для минта и токен-аккаунта отправителя
func (d *DEX) tradeAccounts(mint, senderTokenAccount solana.PublicKey) (TradeAccounts, error) {
	curve, curveTokenAccount, err := DeriveCurveAccounts(mint, d.config.ProgramID)
	if err != nil {
		return TradeAccounts{}, err
	}

	d.logger.Debug("Derived curve accounts",
		zap.String("curve", curve.String()),
		zap.String("curve_token_account", curveTokenAccount.String()))

	return TradeAccounts{
		Program:            d.config.ProgramID,
		Sender:             d.wallet.PublicKey,
		SenderTokenAccount: senderTokenAccount,
		Curve:              curve,
		CurveTokenAccount:  curveTokenAccount,
		DexFee:             d.config.DexFeeAccount,
		HelioFee:           d.config.HelioFeeAccount,
		Mint:               mint,
		Config:             d.config.ConfigAccount,
	}, nil
}

// prepareBuy подготавливает инструкции покупки на collateral лампортов.
// Состояние кривой и токен-аккаунт кошелька запрашиваются параллельно.
func (d *DEX) prepareBuy(ctx context.Context, mint solana.PublicKey, collateral, slippageBps uint64) (*preparedTrade, error) {
	if collateral == 0 {
		return nil, fmt.Errorf("%w: collateral amount is zero", ErrZeroAmount)
	}

	var (
		curve         *CurveAccount
		tokenAccounts *rpc.GetTokenAccountsResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		curve, err = FetchCurveAccount(gctx, d.client, mint, d.config.ProgramID, d.config.Decode)
		return err
	})
	g.Go(func() error {
		var err error
		tokenAccounts, err = d.client.GetTokenAccountsByOwner(gctx, d.wallet.PublicKey, mint)
		if err != nil {
			// Без ответа считаем, что аккаунта нет: создание ATA идемпотентно
			d.logger.Warn("Token account lookup failed, will create ATA",
				zap.String("mint", mint.String()),
				zap.Error(err))
			tokenAccounts = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	amount, err := TokensFromCollateral(curve, collateral, Buy)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: %d lamports buy no whole token", ErrZeroAmount, collateral)
	}

	instructions := computeBudgetInstructions(d.config.UnitPrice, d.config.UnitBudget)

	var senderTokenAccount solana.PublicKey
	if tokenAccounts != nil && len(tokenAccounts.Value) > 0 && tokenAccounts.Value[0] != nil {
		senderTokenAccount = tokenAccounts.Value[0].Pubkey
	} else {
		senderTokenAccount, err = d.wallet.GetATA(mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token account: %w", err)
		}
		instructions = append(instructions,
			d.wallet.CreateAssociatedTokenAccountIdempotentInstruction(d.wallet.PublicKey, d.wallet.PublicKey, mint))
	}

	accounts, err := d.tradeAccounts(mint, senderTokenAccount)
	if err != nil {
		return nil, err
	}

	args := TradeArgs{
		TokenAmount:      amount,
		CollateralAmount: collateral,
		SlippageBps:      slippageBps,
	}

	d.logger.Info("Calculated buy parameters",
		zap.String("mint", mint.String()),
		zap.Uint64("curve_position", curve.CurvePosition()),
		zap.Uint64("collateral_lamports", collateral),
		zap.Uint64("token_amount", amount),
		zap.Uint64("slippage_bps", slippageBps))

	return &preparedTrade{
		instructions: append(instructions, BuildBuyInstruction(accounts, args)),
		args:         args,
	}, nil
}

// prepareSell подготавливает инструкции продажи tokenAmount токенов.
// Нулевой баланс отклоняется до запроса состояния кривой.
func (d *DEX) prepareSell(ctx context.Context, mint solana.PublicKey, tokenAmount, slippageBps uint64) (*preparedTrade, error) {
	if tokenAmount == 0 {
		return nil, ErrZeroBalance
	}

	curve, err := FetchCurveAccount(ctx, d.client, mint, d.config.ProgramID, d.config.Decode)
	if err != nil {
		return nil, err
	}

	collateral, err := CollateralFromTokens(curve, tokenAmount, Sell)
	if err != nil {
		return nil, err
	}
	collateral = roundToQuotePrecision(collateral)
	if collateral == 0 {
		return nil, fmt.Errorf("%w: sell value rounds to zero SOL", ErrUndefinedCollateral)
	}

	senderTokenAccount, err := d.wallet.GetATA(mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	accounts, err := d.tradeAccounts(mint, senderTokenAccount)
	if err != nil {
		return nil, err
	}

	args := TradeArgs{
		TokenAmount:      tokenAmount,
		CollateralAmount: collateral,
		SlippageBps:      slippageBps,
	}

	d.logger.Info("Calculated sell parameters",
		zap.String("mint", mint.String()),
		zap.Uint64("curve_position", curve.CurvePosition()),
		zap.Uint64("token_amount", tokenAmount),
		zap.Uint64("collateral_lamports", collateral),
		zap.Uint64("slippage_bps", slippageBps))

	instructions := computeBudgetInstructions(d.config.UnitPrice, d.config.UnitBudget)
	return &preparedTrade{
		instructions: append(instructions, BuildSellInstruction(accounts, args)),
		args:         args,
	}, nil
}

// roundToQuotePrecision округляет сумму в лампортах до quotePrecision знаков SOL (half-even).
func roundToQuotePrecision(lamports uint64) uint64 {
	sol := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -9)
	return sol.RoundBank(quotePrecision).Shift(9).BigInt().Uint64()
}
