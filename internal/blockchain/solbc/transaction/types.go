// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
)

// Client - часть blockchain.Client, которая нужна менеджеру транзакций.
type Client interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

type Config struct {
	// Отправка
	SendRetries         uint
	SendTimeout         time.Duration
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType

	// Подтверждение
	ConfirmRetries  uint
	ConfirmInterval time.Duration
}

// DefaultConfig возвращает параметры, с которыми работает CLI по умолчанию:
// 20 проверок статуса раз в 3 секунды.
func DefaultConfig() Config {
	return Config{
		SendRetries:         3,
		SendTimeout:         30 * time.Second,
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
		ConfirmRetries:      20,
		ConfirmInterval:     3 * time.Second,
	}
}

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

type Status struct {
	Signature     solana.Signature
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Attempts      uint
	Timestamp     time.Time
}

// Confirmed сообщает, достигла ли транзакция уровня confirmed или выше.
func (s *Status) Confirmed() bool {
	return s != nil && (s.Status == StatusConfirmed || s.Status == StatusFinalized)
}
