// =============================
// File: internal/dex/moonshot/accounts.go
// =============================
package moonshot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/moonshot-bot/internal/utils/binary"
)

// CurveAccountSize is the encoded size of a curve account: an 8-byte header
// followed by the fields of CurveAccount in declaration order.
const CurveAccountSize = 8 + 8 + 8 + 32 + 1 + 1 + 1 + 8 + 1 + 8 + 4 + 1

// Смещение поля amount в SPL token account: mint(32) + owner(32)
const tokenAccountAmountOffset = 64

// AccountFetcher is the read side of the chain client used by the curve reader.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// DecodeOptions tunes how strictly curve account bytes are checked.
type DecodeOptions struct {
	// Discriminator, if set, must equal the account's 8-byte header.
	// The header is not checked when it is empty.
	Discriminator []byte
}

// DeriveCurveAccount вычисляет PDA аккаунта кривой для минта: seeds ["token", mint].
func DeriveCurveAccount(mint, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	curve, bump, err := solana.FindProgramAddress(
		[][]byte{[]byte(CurveSeed), mint.Bytes()},
		programID,
	)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive curve account: %w", err)
	}
	return curve, bump, nil
}

// DeriveCurveAccounts возвращает аккаунт кривой и его ассоциированный токен-аккаунт.
func DeriveCurveAccounts(mint, programID solana.PublicKey) (curve, curveTokenAccount solana.PublicKey, err error) {
	curve, _, err = DeriveCurveAccount(mint, programID)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, err
	}

	curveTokenAccount, _, err = solana.FindAssociatedTokenAddress(curve, mint)
	if err != nil {
		return solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("failed to derive curve token account: %w", err)
	}
	return curve, curveTokenAccount, nil
}

// DecodeCurveAccount parses curve account bytes without a discriminator check.
func DecodeCurveAccount(data []byte) (*CurveAccount, error) {
	return DecodeOptions{}.Decode(data)
}

// Decode parses curve account bytes. Short data, an unknown enum tag, a header
// mismatch or a supply below the curve balance all yield ErrCurveStateUnavailable.
func (o DecodeOptions) Decode(data []byte) (*CurveAccount, error) {
	if len(data) < CurveAccountSize {
		return nil, fmt.Errorf("%w: curve account data is %d bytes, want %d", ErrCurveStateUnavailable, len(data), CurveAccountSize)
	}

	acc := &CurveAccount{}
	r := binary.NewReader(data)

	r.ReadFixed(acc.Discriminator[:])
	acc.TotalSupply = r.Uint64()
	acc.CurveAmount = r.Uint64()
	acc.Mint = r.PubKey()
	acc.Decimals = r.Uint8()
	acc.CollateralCurrency = Currency(r.Uint8())
	acc.CurveType = CurveType(r.Uint8())
	acc.MarketcapThreshold = r.Uint64()
	acc.MarketcapCurrency = Currency(r.Uint8())
	acc.MigrationFee = r.Uint64()
	acc.CoefB = r.Uint32()
	acc.Bump = r.Uint8()

	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurveStateUnavailable, err)
	}

	if len(o.Discriminator) > 0 && !bytes.Equal(acc.Discriminator[:], o.Discriminator) {
		return nil, fmt.Errorf("%w: unexpected account discriminator %x", ErrCurveStateUnavailable, acc.Discriminator)
	}
	if !acc.CollateralCurrency.valid() {
		return nil, fmt.Errorf("%w: unknown collateral currency %d", ErrCurveStateUnavailable, uint8(acc.CollateralCurrency))
	}
	if !acc.CurveType.valid() {
		return nil, fmt.Errorf("%w: unknown curve type %d", ErrCurveStateUnavailable, uint8(acc.CurveType))
	}
	if !acc.MarketcapCurrency.valid() {
		return nil, fmt.Errorf("%w: unknown marketcap currency %d", ErrCurveStateUnavailable, uint8(acc.MarketcapCurrency))
	}
	if acc.TotalSupply < acc.CurveAmount {
		return nil, fmt.Errorf("%w: total supply %d is below curve amount %d", ErrCurveStateUnavailable, acc.TotalSupply, acc.CurveAmount)
	}

	return acc, nil
}

// FetchCurveAccount derives the mint's curve account, fetches it and decodes it.
// Any failure, including a transport error, is reported as ErrCurveStateUnavailable.
func FetchCurveAccount(ctx context.Context, client AccountFetcher, mint, programID solana.PublicKey, opts DecodeOptions) (*CurveAccount, error) {
	curve, _, err := DeriveCurveAccount(mint, programID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurveStateUnavailable, err)
	}

	info, err := client.GetAccountInfo(ctx, curve)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrCurveStateUnavailable, curve, err)
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return nil, fmt.Errorf("%w: curve account %s not found", ErrCurveStateUnavailable, curve)
	}

	acc, err := opts.Decode(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("curve account %s: %w", curve, err)
	}
	return acc, nil
}

// decodeTokenAmount читает баланс из бинарных данных SPL token account.
func decodeTokenAmount(data []byte) (uint64, error) {
	return binary.ReadUint64LittleEndian(data, tokenAccountAmountOffset)
}
