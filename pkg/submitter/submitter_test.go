package submitter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/keys"
	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
	"github.com/paw-chain/oracle-feeder/pkg/submitter"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const (
	attesterWIF = "KwbKDn9tfRYp9sFbNc4k7jKpMvJZ3JcdSHASRKcbxeZVEz7npiFb"
	feePayerWIF = "KxGKdFYCseGL17S8EgXtaswJZGgYkR9K4URJq18rkkhFVoSPu7Dw"
)

// fakeNode records invocations and serves scripted confirmation answers.
type fakeNode struct {
	mu            sync.Mutex
	invocations   []invocation
	faultOnInvoke bool
	confirmations int64
}

type invocation struct {
	scriptHash string
	operation  string
	params     []neorpc.ContractParameter
	signers    []neorpc.Signer
	witnesses  []neorpc.Witness
}

func (f *fakeNode) InvokeFunction(_ context.Context, scriptHash, operation string,
	params []neorpc.ContractParameter, signers []neorpc.Signer, witnesses []neorpc.Witness) (*neorpc.InvokeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocations = append(f.invocations, invocation{scriptHash, operation, params, signers, witnesses})
	if f.faultOnInvoke {
		return &neorpc.InvokeResult{State: "FAULT", Exception: "assert failed"},
			sdkerrors.Wrap(types.ErrTxFault, "assert failed")
	}
	return &neorpc.InvokeResult{State: "HALT", TxHash: "0xfeed"}, nil
}

func (f *fakeNode) GetTransaction(context.Context, string) (*neorpc.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &neorpc.Transaction{Hash: "0xfeed", Confirmations: f.confirmations, BlockIndex: 777}, nil
}

func (f *fakeNode) invokeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.invocations)
}

func (f *fakeNode) setFault(fault bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faultOnInvoke = fault
}

func testAccounts(t *testing.T) (*keys.Account, *keys.Account) {
	t.Helper()
	attester, err := keys.FromWIF(attesterWIF)
	require.NoError(t, err)
	feePayer, err := keys.FromWIF(feePayerWIF)
	require.NoError(t, err)
	return attester, feePayer
}

func newSubmitter(t *testing.T, node *fakeNode) *submitter.Submitter {
	t.Helper()
	attester, feePayer := testAccounts(t)
	s, err := submitter.New(node, attester, feePayer, submitter.Options{
		ContractScriptHash: "0xabcd0000000000000000000000000000000000ef",
		ConfirmPolls:       3,
		ConfirmInterval:    5 * time.Millisecond,
	}, log.NewNopLogger())
	require.NoError(t, err)
	return s
}

func batchWith(prices ...types.AggregatedPrice) types.PriceBatch {
	return types.PriceBatch{
		BatchID:   uuid.New(),
		CreatedAt: time.Now().UTC(),
		Prices:    prices,
	}
}

func aggregated(symbol, price string, confidence int) types.AggregatedPrice {
	return types.AggregatedPrice{
		Symbol:     symbol,
		Price:      sdkmath.LegacyMustNewDecFromStr(price),
		Timestamp:  time.Now().UTC(),
		Confidence: confidence,
	}
}

func TestNewRequiresBothKeys(t *testing.T) {
	attester, feePayer := testAccounts(t)

	_, err := submitter.New(&fakeNode{}, nil, feePayer, submitter.Options{}, log.NewNopLogger())
	require.True(t, sdkerrors.IsOf(err, types.ErrCredentials))

	_, err = submitter.New(&fakeNode{}, attester, nil, submitter.Options{}, log.NewNopLogger())
	require.True(t, sdkerrors.IsOf(err, types.ErrCredentials))
}

func TestSubmitEmptyBatchIsNoOp(t *testing.T) {
	node := &fakeNode{}
	s := newSubmitter(t, node)
	batch := batchWith()

	require.NoError(t, s.Submit(context.Background(), batch))
	require.Zero(t, node.invokeCount())

	info := s.GetBatchStatus(batch.BatchID.String())
	require.Equal(t, types.StatusConfirmed, info.Status)
}

func TestSubmitConfirms(t *testing.T) {
	node := &fakeNode{confirmations: 1}
	s := newSubmitter(t, node)
	batch := batchWith(aggregated("BTCUSDT", "50050", 80), aggregated("ETHUSDT", "3000", 100))

	require.NoError(t, s.Submit(context.Background(), batch))
	require.Equal(t, 1, node.invokeCount())

	// Both witnesses are carried on the invocation.
	require.Len(t, node.invocations[0].signers, 2)
	require.Len(t, node.invocations[0].witnesses, 2)
	require.Equal(t, "UpdatePriceBatch", node.invocations[0].operation)

	require.Eventually(t, func() bool {
		return s.GetBatchStatus(batch.BatchID.String()).Status == types.StatusConfirmed
	}, 2*time.Second, 5*time.Millisecond)

	info := s.GetBatchStatus(batch.BatchID.String())
	require.EqualValues(t, 777, info.BlockNumber)
	require.Equal(t, 2, info.ProcessedCount)
	require.Equal(t, "0xfeed", info.TransactionHash)
}

func TestSubmitLeavesPendingWhenBudgetEnds(t *testing.T) {
	node := &fakeNode{confirmations: 0}
	s := newSubmitter(t, node)
	batch := batchWith(aggregated("BTCUSDT", "50050", 80))

	require.NoError(t, s.Submit(context.Background(), batch))

	require.Eventually(t, func() bool {
		return s.GetBatchStatus(batch.BatchID.String()).Status == types.StatusPending
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubmitFaultMarksFailed(t *testing.T) {
	node := &fakeNode{faultOnInvoke: true}
	s := newSubmitter(t, node)
	batch := batchWith(aggregated("BTCUSDT", "50050", 80))

	err := s.Submit(context.Background(), batch)
	require.True(t, sdkerrors.IsOf(err, types.ErrTxFault))

	info := s.GetBatchStatus(batch.BatchID.String())
	require.Equal(t, types.StatusFailed, info.Status)
	require.Contains(t, info.ErrorMessage, "assert failed")
}

func TestSubmitRejectsDuplicateSymbols(t *testing.T) {
	node := &fakeNode{}
	s := newSubmitter(t, node)
	batch := batchWith(aggregated("BTCUSDT", "50050", 80), aggregated("BTCUSDT", "50060", 80))

	err := s.Submit(context.Background(), batch)
	require.True(t, sdkerrors.IsOf(err, types.ErrMixedSymbols))
	require.Zero(t, node.invokeCount())
	require.Equal(t, types.StatusFailed, s.GetBatchStatus(batch.BatchID.String()).Status)
}

func TestGetBatchStatusUnknown(t *testing.T) {
	s := newSubmitter(t, &fakeNode{})

	require.Equal(t, types.StatusUnknown, s.GetBatchStatus(uuid.NewString()).Status)
	require.Equal(t, types.StatusUnknown, s.GetBatchStatus("not-a-uuid").Status)
}

func TestSubBatchesShareStatusRecord(t *testing.T) {
	node := &fakeNode{confirmations: 1}
	s := newSubmitter(t, node)

	shared := uuid.New()
	first := types.PriceBatch{BatchID: shared, Prices: []types.AggregatedPrice{aggregated("BTCUSDT", "50050", 80)}}
	second := types.PriceBatch{BatchID: shared, Prices: []types.AggregatedPrice{aggregated("ETHUSDT", "3000", 80)}}

	require.NoError(t, s.Submit(context.Background(), first))
	require.NoError(t, s.Submit(context.Background(), second))
	require.Equal(t, 2, node.invokeCount())

	require.Eventually(t, func() bool {
		info := s.GetBatchStatus(shared.String())
		return info.Status == types.StatusConfirmed && info.ProcessedCount == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBatchStatusReflectsWorstSubBatch(t *testing.T) {
	node := &fakeNode{confirmations: 1, faultOnInvoke: true}
	s := newSubmitter(t, node)

	shared := uuid.New()
	first := types.PriceBatch{BatchID: shared, Prices: []types.AggregatedPrice{aggregated("BTCUSDT", "50050", 80)}}
	second := types.PriceBatch{BatchID: shared, Prices: []types.AggregatedPrice{aggregated("ETHUSDT", "3000", 80)}}

	err := s.Submit(context.Background(), first)
	require.True(t, sdkerrors.IsOf(err, types.ErrTxFault))

	node.setFault(false)
	require.NoError(t, s.Submit(context.Background(), second))

	// The second sub-batch confirms, but the failed one keeps the batch Failed.
	require.Eventually(t, func() bool {
		return s.GetBatchStatus(shared.String()).ProcessedCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	info := s.GetBatchStatus(shared.String())
	require.Equal(t, types.StatusFailed, info.Status)
	require.Contains(t, info.ErrorMessage, "assert failed")
	require.Equal(t, "0xfeed", info.TransactionHash)
}
