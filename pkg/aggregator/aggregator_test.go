package aggregator_test

import (
	"fmt"
	"testing"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/paw-chain/oracle-feeder/pkg/aggregator"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

func obs(symbol, source, price string) types.PriceObservation {
	return types.PriceObservation{
		Symbol:    symbol,
		Source:    source,
		Price:     sdkmath.LegacyMustNewDecFromStr(price),
		Timestamp: time.Now().UTC(),
	}
}

func TestAggregateOutlierRejection(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	agg, err := a.Aggregate("BTCUSDT", []types.PriceObservation{
		obs("BTCUSDT", "binance", "50000"),
		obs("BTCUSDT", "okex", "50100"),
		obs("BTCUSDT", "kraken", "60000"),
	})
	require.NoError(t, err)

	// The 60000 outlier is rejected; the mean of the two survivors remains.
	require.Len(t, agg.SourceObservations, 2)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("50050"), agg.Price)
	require.Equal(t, "5005000000000", agg.ScaledPrice().String())
}

func TestAggregateZeroMADKeepsMedianOnly(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	// Two identical prices drive the MAD to zero; the dissenter is rejected
	// even though it sits within any nonzero band.
	agg, err := a.Aggregate("BTCUSDT", []types.PriceObservation{
		obs("BTCUSDT", "binance", "100"),
		obs("BTCUSDT", "okex", "100"),
		obs("BTCUSDT", "kraken", "200"),
	})
	require.NoError(t, err)
	require.Len(t, agg.SourceObservations, 2)
	require.Equal(t, aggregator.ConfidenceDual, agg.Confidence)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("100"), agg.Price)

	// All-identical inputs survive intact.
	agg, err = a.Aggregate("BTCUSDT", []types.PriceObservation{
		obs("BTCUSDT", "binance", "100"),
		obs("BTCUSDT", "okex", "100"),
		obs("BTCUSDT", "kraken", "100"),
	})
	require.NoError(t, err)
	require.Len(t, agg.SourceObservations, 3)
	require.Equal(t, aggregator.ConfidenceMultiple, agg.Confidence)
}

func TestAggregateSingleSource(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	agg, err := a.Aggregate("ETHUSDT", []types.PriceObservation{
		obs("ETHUSDT", "binance", "3000"),
	})
	require.NoError(t, err)
	require.Equal(t, aggregator.ConfidenceSingle, agg.Confidence)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("3000"), agg.Price)
	require.True(t, agg.StandardDeviation.IsZero())
}

func TestAggregateTwoSourcesMean(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	agg, err := a.Aggregate("ETHUSDT", []types.PriceObservation{
		obs("ETHUSDT", "binance", "3000"),
		obs("ETHUSDT", "okex", "3010"),
	})
	require.NoError(t, err)
	require.Equal(t, aggregator.ConfidenceDual, agg.Confidence)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("3005"), agg.Price)
}

func TestAggregateMedianEvenCount(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	agg, err := a.Aggregate("BTCUSDT", []types.PriceObservation{
		obs("BTCUSDT", "binance", "100"),
		obs("BTCUSDT", "okex", "102"),
		obs("BTCUSDT", "kraken", "104"),
		obs("BTCUSDT", "coinbase", "106"),
	})
	require.NoError(t, err)
	require.Equal(t, aggregator.ConfidenceMultiple, agg.Confidence)
	require.Equal(t, sdkmath.LegacyMustNewDecFromStr("103"), agg.Price)
}

func TestAggregateErrors(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	_, err := a.Aggregate("BTCUSDT", nil)
	require.True(t, sdkerrors.IsOf(err, types.ErrNoData))

	_, err = a.Aggregate("BTCUSDT", []types.PriceObservation{
		obs("BTCUSDT", "binance", "100"),
		obs("ETHUSDT", "okex", "3000"),
	})
	require.True(t, sdkerrors.IsOf(err, types.ErrMixedSymbols))
}

func TestAggregateAllDropsFailedSymbols(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	out := a.AggregateAll(map[string][]types.PriceObservation{
		"BTCUSDT": {obs("BTCUSDT", "binance", "50000")},
		"ETHUSDT": {},
	})
	require.Len(t, out, 1)
	require.Equal(t, "BTCUSDT", out[0].Symbol)
}

func TestAggregateProperties(t *testing.T) {
	a := aggregator.New(log.NewNopLogger())

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		observations := make([]types.PriceObservation, n)
		for i := range observations {
			price := rapid.Int64Range(1, 1_000_000).Draw(t, fmt.Sprintf("price%d", i))
			observations[i] = obs("BTCUSDT", fmt.Sprintf("src%d", i), fmt.Sprintf("%d", price))
		}

		agg, err := a.Aggregate("BTCUSDT", observations)
		require.NoError(t, err)
		require.Equal(t, "BTCUSDT", agg.Symbol)
		require.True(t, agg.Price.IsPositive())
		require.NotEmpty(t, agg.SourceObservations)
		require.LessOrEqual(t, len(agg.SourceObservations), n)

		switch len(agg.SourceObservations) {
		case 1:
			require.Equal(t, aggregator.ConfidenceSingle, agg.Confidence)
		case 2:
			require.Equal(t, aggregator.ConfidenceDual, agg.Confidence)
		default:
			require.Equal(t, aggregator.ConfidenceMultiple, agg.Confidence)
		}
	})
}
