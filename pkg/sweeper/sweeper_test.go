package sweeper_test

import (
	"context"
	"testing"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
	"github.com/paw-chain/oracle-feeder/pkg/sweeper"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const (
	gasHash      = "0xd2a4cff31913016155e38e474a2c06d08be276cf"
	attesterAddr = "NAttester11111111111111111111111111"
	feePayerAddr = "NFeePayer11111111111111111111111111"
)

type fakeSweepNode struct {
	balances     []neorpc.Balance
	balanceErr   error
	sendErr      error
	balanceCalls int
	sentAsset    string
	sentFrom     string
	sentTo       string
	sentAmount   string
}

func (f *fakeSweepNode) GetBalance(context.Context, string) ([]neorpc.Balance, error) {
	f.balanceCalls++
	return f.balances, f.balanceErr
}

func (f *fakeSweepNode) SendToAddress(_ context.Context, assetHash, from, to, amount string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sentAsset = assetHash
	f.sentFrom = from
	f.sentTo = to
	f.sentAmount = amount
	return "0xsweep", nil
}

func options(enabled bool) sweeper.Options {
	return sweeper.Options{
		Enabled:         enabled,
		NativeAssetHash: gasHash,
		AttesterAddress: attesterAddr,
		FeePayerAddress: feePayerAddr,
		Threshold:       sdkmath.LegacyOneDec(),
	}
}

func TestSweepDisabled(t *testing.T) {
	node := &fakeSweepNode{}
	s := sweeper.New(node, options(false), log.NewNopLogger())

	txHash, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, txHash)
	require.Zero(t, node.balanceCalls)
}

func TestSweepBelowThresholdSkips(t *testing.T) {
	node := &fakeSweepNode{balances: []neorpc.Balance{
		{AssetHash: gasHash, Amount: "99999999", Decimals: 8},
	}}
	s := sweeper.New(node, options(true), log.NewNopLogger())

	txHash, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, txHash)
	require.Empty(t, node.sentTo)
}

func TestSweepTransfersWholeBalance(t *testing.T) {
	node := &fakeSweepNode{balances: []neorpc.Balance{
		{AssetHash: "0xother", Amount: "500000000000", Decimals: 8},
		{AssetHash: gasHash, Amount: "250000000", Decimals: 8},
	}}
	s := sweeper.New(node, options(true), log.NewNopLogger())

	txHash, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xsweep", txHash)
	require.Equal(t, gasHash, node.sentAsset)
	require.Equal(t, attesterAddr, node.sentFrom)
	require.Equal(t, feePayerAddr, node.sentTo)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("2.5").String(), node.sentAmount)
}

func TestSweepMissingAssetSkips(t *testing.T) {
	node := &fakeSweepNode{balances: []neorpc.Balance{
		{AssetHash: "0xother", Amount: "900000000", Decimals: 8},
	}}
	s := sweeper.New(node, options(true), log.NewNopLogger())

	txHash, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Empty(t, txHash)
}

func TestSweepSurfacesErrors(t *testing.T) {
	node := &fakeSweepNode{balanceErr: sdkerrors.Wrap(types.ErrRPC, "node down")}
	s := sweeper.New(node, options(true), log.NewNopLogger())
	_, err := s.Sweep(context.Background())
	require.Error(t, err)

	node = &fakeSweepNode{
		balances: []neorpc.Balance{{AssetHash: gasHash, Amount: "250000000", Decimals: 8}},
		sendErr:  sdkerrors.Wrap(types.ErrRPC, "rejected"),
	}
	s = sweeper.New(node, options(true), log.NewNopLogger())
	_, err = s.Sweep(context.Background())
	require.Error(t, err)
}

func TestNewDefaultsThreshold(t *testing.T) {
	node := &fakeSweepNode{balances: []neorpc.Balance{
		{AssetHash: gasHash, Amount: "100000000", Decimals: 8},
	}}
	opts := options(true)
	opts.Threshold = sdkmath.LegacyDec{}
	s := sweeper.New(node, opts, log.NewNopLogger())

	// Exactly one native unit meets the default threshold.
	txHash, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0xsweep", txHash)
}
