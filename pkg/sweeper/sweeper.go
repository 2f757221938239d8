// Package sweeper moves residual native tokens from the attester account to
// the fee-payer account ahead of a submission. The sweep is an optimisation:
// any failure logs a warning and never blocks the batch.
package sweeper

import (
	"context"

	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"

	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
)

// NodeClient is the RPC surface the sweeper needs from the node.
type NodeClient interface {
	GetBalance(ctx context.Context, address string) ([]neorpc.Balance, error)
	SendToAddress(ctx context.Context, assetHash, from, to, amount string) (string, error)
}

// Options configure one Sweeper.
type Options struct {
	Enabled bool
	// NativeAssetHash identifies the token being swept.
	NativeAssetHash string
	// AttesterAddress is swept into FeePayerAddress.
	AttesterAddress string
	FeePayerAddress string
	// Threshold is the minimum balance, in native units, worth sweeping.
	Threshold sdkmath.LegacyDec
}

// DefaultThreshold is one native unit.
var DefaultThreshold = sdkmath.LegacyOneDec()

// Sweeper checks the attester balance and transfers the surplus.
type Sweeper struct {
	node   NodeClient
	opts   Options
	logger log.Logger
}

// New creates a Sweeper.
func New(node NodeClient, opts Options, logger log.Logger) *Sweeper {
	if opts.Threshold.IsNil() || !opts.Threshold.IsPositive() {
		opts.Threshold = DefaultThreshold
	}
	return &Sweeper{node: node, opts: opts, logger: logger}
}

// Sweep queries the attester balance and, above the threshold, transfers the
// whole balance to the fee-payer. It returns the tx hash when a transfer was
// made. Errors are reported but callers treat them as warnings.
func (s *Sweeper) Sweep(ctx context.Context) (string, error) {
	if !s.opts.Enabled {
		return "", nil
	}

	balances, err := s.node.GetBalance(ctx, s.opts.AttesterAddress)
	if err != nil {
		s.logger.Warn("sweep balance query failed", "address", s.opts.AttesterAddress, "err", err)
		return "", err
	}

	balance := s.nativeBalance(balances)
	if balance.LT(s.opts.Threshold) {
		s.logger.Debug("balance below sweep threshold",
			"balance", balance, "threshold", s.opts.Threshold)
		return "", nil
	}

	txHash, err := s.node.SendToAddress(ctx, s.opts.NativeAssetHash,
		s.opts.AttesterAddress, s.opts.FeePayerAddress, balance.String())
	if err != nil {
		s.logger.Warn("sweep transfer failed", "amount", balance, "err", err)
		return "", err
	}
	s.logger.Info("swept attester balance", "amount", balance, "tx", txHash)
	return txHash, nil
}

// nativeBalance extracts the native-asset balance in whole units.
func (s *Sweeper) nativeBalance(balances []neorpc.Balance) sdkmath.LegacyDec {
	for _, b := range balances {
		if b.AssetHash != s.opts.NativeAssetHash {
			continue
		}
		raw, err := sdkmath.LegacyNewDecFromStr(b.Amount)
		if err != nil {
			continue
		}
		if b.Decimals > 0 {
			divisor := sdkmath.LegacyNewDec(10).Power(uint64(b.Decimals))
			return raw.Quo(divisor)
		}
		return raw
	}
	return sdkmath.LegacyZeroDec()
}
