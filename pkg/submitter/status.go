package submitter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// StatusTable tracks the outcome of every sub-batch and the transaction
// hashes of a logical batch. Sub-batches advance independently; the batch
// level view folds them so the reported status is the worst sub-batch
// outcome. The table is shared between the submitting goroutine and the
// background confirmation pollers, so every access takes the lock.
type StatusTable struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]*batchRecord
}

type batchRecord struct {
	subs     []types.BatchStatusInfo
	txHashes []string
}

// NewStatusTable creates an empty table.
func NewStatusTable() *StatusTable {
	return &StatusTable{batches: make(map[uuid.UUID]*batchRecord)}
}

// BeginSub registers a new sub-batch under the batch and returns its handle.
func (t *StatusTable) BeginSub(batchID uuid.UUID, status types.BatchStatus, total int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.batches[batchID]
	if !ok {
		rec = &batchRecord{}
		t.batches[batchID] = rec
	}
	rec.subs = append(rec.subs, types.BatchStatusInfo{
		BatchID:    batchID,
		Status:     status,
		TotalCount: total,
		Timestamp:  time.Now().UTC(),
	})
	return len(rec.subs) - 1
}

// UpdateSub mutates one sub-batch record in place. A no-op when the handle
// is unknown.
func (t *StatusTable) UpdateSub(batchID uuid.UUID, sub int, fn func(*types.BatchStatusInfo)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.batches[batchID]
	if !ok || sub < 0 || sub >= len(rec.subs) {
		return
	}
	fn(&rec.subs[sub])
	rec.subs[sub].Timestamp = time.Now().UTC()
}

// AddTxHash appends a sub-batch transaction hash for a batch.
func (t *StatusTable) AddTxHash(batchID uuid.UUID, txHash string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.batches[batchID]
	if !ok {
		rec = &batchRecord{}
		t.batches[batchID] = rec
	}
	rec.txHashes = append(rec.txHashes, txHash)
}

// TxHashes returns the transaction hashes recorded for a batch.
func (t *StatusTable) TxHashes(batchID uuid.UUID) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.batches[batchID]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.txHashes))
	copy(out, rec.txHashes)
	return out
}

// GetBatchStatus folds the sub-batch records into the batch level view: the
// status is the worst across sub-batches, counts accumulate, the first error
// and the latest transaction hash win. Unknown batch ids yield a record with
// StatusUnknown.
func (t *StatusTable) GetBatchStatus(batchID uuid.UUID) types.BatchStatusInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.batches[batchID]
	if !ok || len(rec.subs) == 0 {
		return types.BatchStatusInfo{
			BatchID:   batchID,
			Status:    types.StatusUnknown,
			Timestamp: time.Now().UTC(),
		}
	}

	out := rec.subs[0]
	for _, sub := range rec.subs[1:] {
		out.Status = types.WorseOf(out.Status, sub.Status)
		out.ProcessedCount += sub.ProcessedCount
		out.TotalCount += sub.TotalCount
		if sub.TransactionHash != "" {
			out.TransactionHash = sub.TransactionHash
		}
		if sub.BlockNumber > out.BlockNumber {
			out.BlockNumber = sub.BlockNumber
		}
		if out.ErrorMessage == "" {
			out.ErrorMessage = sub.ErrorMessage
		}
		if sub.Timestamp.After(out.Timestamp) {
			out.Timestamp = sub.Timestamp
		}
	}
	return out
}
