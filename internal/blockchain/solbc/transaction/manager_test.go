package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonshot-bot/internal/blockchain"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *mockClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	if res := args.Get(0); res != nil {
		return res.(*rpc.GetSignatureStatusesResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func signedTx(t *testing.T) *solana.Transaction {
	t.Helper()

	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ix := solana.NewInstruction(
		solana.SystemProgramID,
		[]*solana.AccountMeta{{PublicKey: payer.PublicKey(), IsSigner: true, IsWritable: true}},
		[]byte{2, 0, 0, 0},
	)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func statuses(s *rpc.SignatureStatusesResult) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{s}}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConfirmRetries = 3
	cfg.ConfirmInterval = time.Millisecond
	return cfg
}

func newTestManager(client Client, reg prometheus.Registerer) *Manager {
	m := NewManager(client, zap.NewNop(), testConfig(), reg)
	m.sendInterval = time.Millisecond
	return m
}

func TestSendAndConfirm_Confirmed(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)
	sig := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statuses(nil), nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statuses(&rpc.SignatureStatusesResult{
		Slot:               42,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}), nil).Once()

	reg := prometheus.NewRegistry()
	m := newTestManager(client, reg)

	status, err := m.SendAndConfirm(context.Background(), tx)
	require.NoError(t, err)
	assert.True(t, status.Confirmed())
	assert.Equal(t, sig, status.Signature)
	assert.Equal(t, uint64(42), status.Slot)
	assert.Equal(t, uint(2), status.Attempts)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.confirmed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.sendAttempts))
	client.AssertExpectations(t)
}

func TestSendAndConfirm_FailedOnChain(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)
	sig := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statuses(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6003}}},
	}), nil).Once()

	m := newTestManager(client, nil)

	status, err := m.SendAndConfirm(context.Background(), tx)
	require.ErrorIs(t, err, ErrTransactionFailed)
	require.NotNil(t, status)
	assert.Equal(t, StatusFailed, status.Status)
	assert.Equal(t, sig, status.Signature)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.failed))
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 1)
}

func TestSendAndConfirm_ConfirmationTimeout(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)
	sig := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(sig, nil).Once()
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statuses(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
	}), nil)

	m := newTestManager(client, nil)

	status, err := m.SendAndConfirm(context.Background(), tx)
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	require.NotNil(t, status)
	assert.Equal(t, sig, status.Signature)
	assert.False(t, status.Confirmed())
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 3)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.timedOut))
}

func TestAwaitConfirmation_StatusErrorsCountAsAttempts(t *testing.T) {
	client := new(mockClient)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	monitor := NewMonitor(client, zap.NewNop(), testConfig(), NewMetrics(nil))

	_, err := monitor.AwaitConfirmation(context.Background(), solana.Signature{9})
	require.ErrorIs(t, err, ErrConfirmationTimeout)
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 3)
}

func TestAwaitConfirmation_ContextCancelled(t *testing.T) {
	client := new(mockClient)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statuses(nil), nil)

	cfg := testConfig()
	cfg.ConfirmInterval = time.Hour
	monitor := NewMonitor(client, zap.NewNop(), cfg, NewMetrics(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := monitor.AwaitConfirmation(ctx, solana.Signature{9})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConfirmationTimeout)
}

func TestSend_RetriesTransientErrors(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)
	sig := tx.Signatures[0]

	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(solana.Signature{}, errors.New("connection reset")).Once()
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(sig, nil).Once()

	m := newTestManager(client, nil)

	got, err := m.Send(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.metrics.sendAttempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.metrics.sendFailures))
}

func TestSend_DoesNotRetrySimulationFailure(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)

	simErr := &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Error processing Instruction 2"}
	client.On("SendTransactionWithOpts", mock.Anything, tx, mock.Anything).Return(solana.Signature{}, simErr)

	m := newTestManager(client, nil)

	_, err := m.Send(context.Background(), tx)
	require.Error(t, err)

	var rpcErr *jsonrpc.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32002, rpcErr.Code)
	client.AssertNumberOfCalls(t, "SendTransactionWithOpts", 1)
}

func TestSend_PassesTransactionOptions(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)

	want := blockchain.TransactionOptions{SkipPreflight: true, PreflightCommitment: rpc.CommitmentConfirmed}
	client.On("SendTransactionWithOpts", mock.Anything, tx, want).Return(tx.Signatures[0], nil).Once()

	m := newTestManager(client, nil)
	_, err := m.Send(context.Background(), tx)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestValidator(t *testing.T) {
	v := NewValidator(zap.NewNop())

	t.Run("signed", func(t *testing.T) {
		assert.NoError(t, v.ValidateTransaction(signedTx(t)))
	})

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, v.ValidateTransaction(nil), ErrInvalidInstruction)
	})

	t.Run("unsigned", func(t *testing.T) {
		tx := signedTx(t)
		tx.Signatures = nil
		assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidSignature)
	})

	t.Run("empty signature", func(t *testing.T) {
		tx := signedTx(t)
		tx.Signatures[0] = solana.Signature{}
		assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidSignature)
	})

	t.Run("missing blockhash", func(t *testing.T) {
		tx := signedTx(t)
		tx.Message.RecentBlockhash = solana.Hash{}
		assert.ErrorIs(t, v.ValidateTransaction(tx), ErrInvalidBlockhash)
	})
}

func TestSendAndConfirm_RejectsInvalidTransaction(t *testing.T) {
	client := new(mockClient)
	tx := signedTx(t)
	tx.Signatures = nil

	m := newTestManager(client, nil)
	_, err := m.SendAndConfirm(context.Background(), tx)
	require.ErrorIs(t, err, ErrInvalidSignature)
	client.AssertNotCalled(t, "SendTransactionWithOpts", mock.Anything, mock.Anything, mock.Anything)
}
