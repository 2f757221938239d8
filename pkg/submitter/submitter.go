// Package submitter sends price batches on-chain: it builds the contract
// invocation, dual-signs it with the attester and fee-payer keys, submits it
// over RPC and tracks confirmation in the background.
package submitter

import (
	"context"
	"encoding/hex"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/paw-chain/oracle-feeder/pkg/keys"
	"github.com/paw-chain/oracle-feeder/pkg/metrics"
	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const updateBatchOperation = "UpdatePriceBatch"

// NodeClient is the RPC surface the submitter needs from the node.
type NodeClient interface {
	InvokeFunction(ctx context.Context, scriptHash, operation string,
		params []neorpc.ContractParameter, signers []neorpc.Signer, witnesses []neorpc.Witness) (*neorpc.InvokeResult, error)
	GetTransaction(ctx context.Context, txHash string) (*neorpc.Transaction, error)
}

// Options configure one Submitter.
type Options struct {
	ContractScriptHash string
	// ConfirmPolls polls at ConfirmInterval track each transaction; a batch
	// still unconfirmed when the budget ends stays Pending.
	ConfirmPolls    int
	ConfirmInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConfirmPolls <= 0 {
		o.ConfirmPolls = 30
	}
	if o.ConfirmInterval <= 0 {
		o.ConfirmInterval = 2 * time.Second
	}
	return o
}

// Submitter owns the signing keys and the status table.
type Submitter struct {
	node     NodeClient
	attester *keys.Account
	feePayer *keys.Account
	opts     Options
	statuses *StatusTable
	logger   log.Logger
}

// New creates a Submitter. Both signing keys are mandatory: a missing
// attester or fee-payer means witnesses cannot be produced.
func New(node NodeClient, attester, feePayer *keys.Account, opts Options, logger log.Logger) (*Submitter, error) {
	if attester == nil || feePayer == nil {
		return nil, sdkerrors.Wrap(types.ErrCredentials, "attester and fee-payer keys are both required")
	}
	return &Submitter{
		node:     node,
		attester: attester,
		feePayer: feePayer,
		opts:     opts.withDefaults(),
		statuses: NewStatusTable(),
		logger:   logger,
	}, nil
}

// Statuses exposes the status table for queries.
func (s *Submitter) Statuses() *StatusTable { return s.statuses }

// GetBatchStatus returns the current status record for a batch id.
func (s *Submitter) GetBatchStatus(batchID string) types.BatchStatusInfo {
	id, err := uuid.Parse(batchID)
	if err != nil {
		return types.BatchStatusInfo{Status: types.StatusUnknown, Timestamp: time.Now().UTC()}
	}
	return s.statuses.GetBatchStatus(id)
}

// Submit sends one sub-batch on-chain. An empty batch is a successful no-op
// with no RPC call. The returned error is also reflected in the status table.
func (s *Submitter) Submit(ctx context.Context, batch types.PriceBatch) error {
	if len(batch.Prices) == 0 {
		s.statuses.BeginSub(batch.BatchID, types.StatusConfirmed, 0)
		s.logger.Info("empty batch, nothing to submit", "batchId", batch.BatchID)
		return nil
	}
	if err := batch.Validate(); err != nil {
		err = sdkerrors.Wrapf(types.ErrMixedSymbols, "invalid batch %s: %v", batch.BatchID, err)
		s.failSub(batch.BatchID, s.statuses.BeginSub(batch.BatchID, types.StatusPending, 0), err)
		return err
	}

	sub := s.statuses.BeginSub(batch.BatchID, types.StatusPending, len(batch.Prices))
	s.statuses.UpdateSub(batch.BatchID, sub, func(info *types.BatchStatusInfo) {
		info.Status = types.StatusProcessing
	})

	payload := BuildPayload(batch)
	signers, witnesses, err := s.sign(payload, batch.BatchID.String())
	if err != nil {
		s.failSub(batch.BatchID, sub, err)
		return err
	}

	result, err := s.node.InvokeFunction(ctx, s.opts.ContractScriptHash, updateBatchOperation,
		payload.ContractParameters(), signers, witnesses)
	if err != nil {
		s.failSub(batch.BatchID, sub, err)
		return err
	}

	s.statuses.AddTxHash(batch.BatchID, result.TxHash)
	s.statuses.UpdateSub(batch.BatchID, sub, func(info *types.BatchStatusInfo) {
		info.Status = types.StatusSent
		info.TransactionHash = result.TxHash
	})
	s.logger.Info("batch submitted",
		"batchId", batch.BatchID, "tx", result.TxHash, "prices", len(batch.Prices))

	// Confirmation runs on its own context so the next cycle can start
	// while this one is still being tracked.
	go s.trackConfirmation(batch.BatchID, sub, result.TxHash, len(batch.Prices))

	return nil
}

// sign produces the two called-by-entry witnesses: attester first, fee-payer
// second.
func (s *Submitter) sign(payload InvocationPayload, batchID string) ([]neorpc.Signer, []neorpc.Witness, error) {
	message, err := payload.SigningMessage(batchID, s.opts.ContractScriptHash)
	if err != nil {
		return nil, nil, sdkerrors.Wrapf(types.ErrCredentials, "signing message: %v", err)
	}

	attesterSig, err := s.attester.Sign(message)
	if err != nil {
		return nil, nil, sdkerrors.Wrapf(types.ErrCredentials, "attester signature: %v", err)
	}
	feePayerSig, err := s.feePayer.Sign(message)
	if err != nil {
		return nil, nil, sdkerrors.Wrapf(types.ErrCredentials, "fee-payer signature: %v", err)
	}

	signers := []neorpc.Signer{
		{Account: s.attester.ScriptHash(), Scopes: neorpc.ScopeCalledByEntry},
		{Account: s.feePayer.ScriptHash(), Scopes: neorpc.ScopeCalledByEntry},
	}
	witnesses := []neorpc.Witness{
		{Invocation: hex.EncodeToString(attesterSig), Verification: hex.EncodeToString(s.attester.PublicKey())},
		{Invocation: hex.EncodeToString(feePayerSig), Verification: hex.EncodeToString(s.feePayer.PublicKey())},
	}
	return signers, witnesses, nil
}

// trackConfirmation polls the transaction until confirmed or the poll budget
// ends. Budget exhaustion leaves the batch Pending, not Failed; poll errors
// are logged and retried within the budget.
func (s *Submitter) trackConfirmation(batchID uuid.UUID, sub int, txHash string, priceCount int) {
	budget := time.Duration(s.opts.ConfirmPolls)*s.opts.ConfirmInterval + 30*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for poll := 0; poll < s.opts.ConfirmPolls; poll++ {
		select {
		case <-ctx.Done():
			s.markPending(batchID, sub, txHash)
			return
		case <-time.After(s.opts.ConfirmInterval):
		}

		tx, err := s.node.GetTransaction(ctx, txHash)
		if err != nil {
			s.logger.Debug("confirmation poll failed", "tx", txHash, "err", err)
			continue
		}
		if tx.Confirmed() {
			s.statuses.UpdateSub(batchID, sub, func(info *types.BatchStatusInfo) {
				info.Status = types.StatusConfirmed
				info.ProcessedCount += priceCount
				info.BlockNumber = tx.BlockIndex
			})
			metrics.BatchesConfirmed.Inc()
			s.logger.Info("batch confirmed", "batchId", batchID, "tx", txHash, "block", tx.BlockIndex)
			return
		}
	}
	s.markPending(batchID, sub, txHash)
}

func (s *Submitter) markPending(batchID uuid.UUID, sub int, txHash string) {
	s.statuses.UpdateSub(batchID, sub, func(info *types.BatchStatusInfo) {
		info.Status = types.StatusPending
	})
	s.logger.Info("confirmation budget exhausted, batch left pending", "batchId", batchID, "tx", txHash)
}

func (s *Submitter) failSub(batchID uuid.UUID, sub int, cause error) {
	s.statuses.UpdateSub(batchID, sub, func(info *types.BatchStatusInfo) {
		info.Status = types.StatusFailed
		info.ErrorMessage = cause.Error()
	})
	s.logger.Error("batch submission failed", "batchId", batchID, "err", cause)
}
