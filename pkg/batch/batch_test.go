package batch_test

import (
	"fmt"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/batch"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

func prices(n int) []types.AggregatedPrice {
	out := make([]types.AggregatedPrice, n)
	for i := range out {
		out[i] = types.AggregatedPrice{
			Symbol:     fmt.Sprintf("SYM%d", i),
			Price:      sdkmath.LegacyNewDec(int64(i + 1)),
			Timestamp:  time.Now().UTC(),
			Confidence: 100,
		}
	}
	return out
}

func TestBuildSingleBatch(t *testing.T) {
	b := batch.NewBuilder(50)

	batches := b.Build(prices(50))
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Prices, 50)
}

func TestBuildSplitsOversize(t *testing.T) {
	b := batch.NewBuilder(50)

	batches := b.Build(prices(120))
	require.Len(t, batches, 3)
	require.Len(t, batches[0].Prices, 50)
	require.Len(t, batches[1].Prices, 50)
	require.Len(t, batches[2].Prices, 20)

	// Sub-batches share identity and preserve order.
	for _, sub := range batches[1:] {
		require.Equal(t, batches[0].BatchID, sub.BatchID)
		require.Equal(t, batches[0].CreatedAt, sub.CreatedAt)
	}
	i := 0
	for _, sub := range batches {
		for _, p := range sub.Prices {
			require.Equal(t, fmt.Sprintf("SYM%d", i), p.Symbol)
			i++
		}
	}
}

func TestBuildBatchSizeOne(t *testing.T) {
	b := batch.NewBuilder(1)

	batches := b.Build(prices(3))
	require.Len(t, batches, 3)
	for _, sub := range batches {
		require.Len(t, sub.Prices, 1)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	require.Empty(t, batch.NewBuilder(50).Build(nil))
}

func TestBuilderSizeFallback(t *testing.T) {
	require.Equal(t, batch.DefaultMaxBatchSize, batch.NewBuilder(0).MaxBatchSize())
	require.Equal(t, batch.DefaultMaxBatchSize, batch.NewBuilder(101).MaxBatchSize())
	require.Equal(t, 100, batch.NewBuilder(100).MaxBatchSize())
}
