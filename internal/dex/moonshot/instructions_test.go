package moonshot

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTradeAccounts() TradeAccounts {
	return TradeAccounts{
		Program:            ProgramID,
		Sender:             solana.NewWallet().PublicKey(),
		SenderTokenAccount: solana.NewWallet().PublicKey(),
		Curve:              solana.NewWallet().PublicKey(),
		CurveTokenAccount:  solana.NewWallet().PublicKey(),
		DexFee:             DexFeeAccount,
		HelioFee:           HelioFeeAccount,
		Mint:               testMint,
		Config:             ConfigAccount,
	}
}

func TestBuildTradeInstruction_Data(t *testing.T) {
	args := TradeArgs{TokenAmount: 29391577000000000, CollateralAmount: 1_000_000_000, SlippageBps: 500}

	tests := []struct {
		name          string
		build         func(TradeAccounts, TradeArgs) solana.Instruction
		discriminator uint64
	}{
		{"buy", BuildBuyInstruction, BuyDiscriminator},
		{"sell", BuildSellInstruction, SellDiscriminator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := tt.build(testTradeAccounts(), args)

			data, err := ix.Data()
			require.NoError(t, err)
			require.Len(t, data, 32)

			assert.Equal(t, tt.discriminator, binary.LittleEndian.Uint64(data[0:8]))
			assert.Equal(t, args.TokenAmount, binary.LittleEndian.Uint64(data[8:16]))
			assert.Equal(t, args.CollateralAmount, binary.LittleEndian.Uint64(data[16:24]))
			assert.Equal(t, args.SlippageBps, binary.LittleEndian.Uint64(data[24:32]))
			assert.Equal(t, ProgramID, ix.ProgramID())
		})
	}
}

func TestBuildTradeInstruction_Discriminators(t *testing.T) {
	data, err := BuildBuyInstruction(testTradeAccounts(), TradeArgs{}).Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}, data[:8])

	data, err = BuildSellInstruction(testTradeAccounts(), TradeArgs{}).Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}, data[:8])
}

func TestBuildTradeInstruction_Accounts(t *testing.T) {
	accounts := testTradeAccounts()
	metas := BuildBuyInstruction(accounts, TradeArgs{}).Accounts()
	require.Len(t, metas, 11)

	want := []struct {
		key      solana.PublicKey
		signer   bool
		writable bool
	}{
		{accounts.Sender, true, true},
		{accounts.SenderTokenAccount, false, true},
		{accounts.Curve, false, true},
		{accounts.CurveTokenAccount, false, true},
		{accounts.DexFee, false, true},
		{accounts.HelioFee, false, true},
		{accounts.Mint, false, true},
		{accounts.Config, false, true},
		{solana.TokenProgramID, false, true},
		{solana.SPLAssociatedTokenAccountProgramID, false, false},
		{solana.SystemProgramID, false, false},
	}

	for i, w := range want {
		assert.Equal(t, w.key, metas[i].PublicKey, "account %d", i)
		assert.Equal(t, w.signer, metas[i].IsSigner, "account %d signer", i)
		assert.Equal(t, w.writable, metas[i].IsWritable, "account %d writable", i)
	}

	// sell использует тот же порядок
	assert.Equal(t, metas, BuildSellInstruction(accounts, TradeArgs{}).Accounts())
}

func TestComputeBudgetInstructions(t *testing.T) {
	ixs := computeBudgetInstructions(DefaultUnitPrice, DefaultUnitBudget)
	require.Len(t, ixs, 2)

	for _, ix := range ixs {
		assert.Equal(t, computebudget.ProgramID, ix.ProgramID())
	}

	price, err := ixs[0].Data()
	require.NoError(t, err)
	assert.Equal(t, byte(3), price[0])
	assert.Equal(t, DefaultUnitPrice, binary.LittleEndian.Uint64(price[1:9]))

	limit, err := ixs[1].Data()
	require.NoError(t, err)
	assert.Equal(t, byte(2), limit[0])
	assert.Equal(t, DefaultUnitBudget, binary.LittleEndian.Uint32(limit[1:5]))
}
