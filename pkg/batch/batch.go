// Package batch splits aggregated prices into submission-sized batches.
package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const (
	// DefaultMaxBatchSize is the production sub-batch size.
	DefaultMaxBatchSize = 50
	// MaxBatchSizeLimit is the hard cap a configured size may not exceed.
	MaxBatchSizeLimit = 100
)

// Builder cuts aggregated prices into sub-batches of at most MaxBatchSize
// prices. Every sub-batch from one Build call shares BatchID and CreatedAt,
// so a split submission is still traceable as one logical batch.
type Builder struct {
	maxBatchSize int
}

// NewBuilder creates a Builder. Sizes outside [1, MaxBatchSizeLimit] fall
// back to the default.
func NewBuilder(maxBatchSize int) *Builder {
	if maxBatchSize <= 0 || maxBatchSize > MaxBatchSizeLimit {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &Builder{maxBatchSize: maxBatchSize}
}

// MaxBatchSize returns the configured sub-batch size.
func (b *Builder) MaxBatchSize() int { return b.maxBatchSize }

// Build cuts the prices into sub-batches preserving input order. An empty
// input yields no batches.
func (b *Builder) Build(prices []types.AggregatedPrice) []types.PriceBatch {
	if len(prices) == 0 {
		return nil
	}

	batchID := uuid.New()
	createdAt := time.Now().UTC()

	batches := make([]types.PriceBatch, 0, (len(prices)+b.maxBatchSize-1)/b.maxBatchSize)
	for start := 0; start < len(prices); start += b.maxBatchSize {
		end := start + b.maxBatchSize
		if end > len(prices) {
			end = len(prices)
		}
		batches = append(batches, types.PriceBatch{
			BatchID:   batchID,
			CreatedAt: createdAt,
			Prices:    prices[start:end],
		})
	}
	return batches
}
