// ==============================================
// File: internal/dex/moonshot/instructions.go
// ==============================================
package moonshot

import (
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"github.com/rovshanmuradov/moonshot-bot/internal/utils/binary"
)

// TradeAccounts are the accounts a buy or sell instruction touches.
type TradeAccounts struct {
	Program            solana.PublicKey
	Sender             solana.PublicKey
	SenderTokenAccount solana.PublicKey
	Curve              solana.PublicKey
	CurveTokenAccount  solana.PublicKey
	DexFee             solana.PublicKey
	HelioFee           solana.PublicKey
	Mint               solana.PublicKey
	Config             solana.PublicKey
}

// TradeArgs are the instruction arguments: the token amount, the collateral amount
// in lamports and the slippage tolerance applied on chain.
type TradeArgs struct {
	TokenAmount      uint64
	CollateralAmount uint64
	SlippageBps      uint64
}

// BuildBuyInstruction builds a buy instruction for Moonshot protocol
func BuildBuyInstruction(accounts TradeAccounts, args TradeArgs) solana.Instruction {
	return buildTradeInstruction(BuyDiscriminator, accounts, args)
}

// BuildSellInstruction builds a sell instruction for Moonshot protocol
func BuildSellInstruction(accounts TradeAccounts, args TradeArgs) solana.Instruction {
	return buildTradeInstruction(SellDiscriminator, accounts, args)
}

func buildTradeInstruction(discriminator uint64, accounts TradeAccounts, args TradeArgs) solana.Instruction {
	data := binary.AppendUint64(make([]byte, 0, 32),
		discriminator,
		args.TokenAmount,
		args.CollateralAmount,
		args.SlippageBps,
	)

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: accounts.Sender, IsSigner: true, IsWritable: true},
		{PublicKey: accounts.SenderTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Curve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.CurveTokenAccount, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.DexFee, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.HelioFee, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Config, IsSigner: false, IsWritable: true},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: true},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(accounts.Program, insAccounts, data)
}

// computeBudgetInstructions задаёт цену и лимит вычислительных единиц.
func computeBudgetInstructions(unitPrice uint64, unitBudget uint32) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitPriceInstruction(unitPrice).Build(),
		computebudget.NewSetComputeUnitLimitInstruction(unitBudget).Build(),
	}
}
