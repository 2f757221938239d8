package pricecache_test

import (
	"context"
	"testing"
	"time"

	sdkerrors "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/pricecache"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

func observation(symbol, source, price string) types.PriceObservation {
	return types.PriceObservation{
		Symbol:    symbol,
		Source:    source,
		Price:     sdkmath.LegacyMustNewDecFromStr(price),
		Timestamp: time.Now().UTC(),
	}
}

func TestPriceCacheHitAndExpiry(t *testing.T) {
	c := pricecache.New(50*time.Millisecond, time.Hour)

	_, ok := c.GetPrice("binance", "BTCUSDT")
	require.False(t, ok)

	c.SetPrice(observation("BTCUSDT", "binance", "50000"))
	cached, ok := c.GetPrice("binance", "BTCUSDT")
	require.True(t, ok)
	require.Equal(t, "BTCUSDT", cached.Symbol)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.GetPrice("binance", "BTCUSDT")
	require.False(t, ok)
}

func TestPriceCacheNeverStoresNonPositive(t *testing.T) {
	c := pricecache.New(time.Minute, time.Hour)

	c.SetPrice(types.PriceObservation{
		Symbol: "BTCUSDT",
		Source: "binance",
		Price:  sdkmath.LegacyZeroDec(),
	})
	_, ok := c.GetPrice("binance", "BTCUSDT")
	require.False(t, ok)
}

func TestSupportedSymbolsStaleFallback(t *testing.T) {
	c := pricecache.New(time.Minute, 50*time.Millisecond)

	c.SetSupportedSymbols("kraken", []string{"XBTUSDT"})
	symbols, fresh, found := c.GetSupportedSymbols("kraken")
	require.True(t, found)
	require.True(t, fresh)
	require.Equal(t, []string{"XBTUSDT"}, symbols)

	time.Sleep(80 * time.Millisecond)
	symbols, fresh, found = c.GetSupportedSymbols("kraken")
	require.True(t, found)
	require.False(t, fresh)
	require.Equal(t, []string{"XBTUSDT"}, symbols)
}

// fakeAdapter counts calls and can be told to fail.
type fakeAdapter struct {
	name    string
	fail    bool
	calls   int
	price   string
	symbols []string
}

func (f *fakeAdapter) SourceName() string { return f.name }
func (f *fakeAdapter) IsEnabled() bool    { return true }

func (f *fakeAdapter) GetSupportedSymbols(context.Context) ([]string, error) {
	f.calls++
	if f.fail {
		return nil, sdkerrors.Wrap(types.ErrHTTPTransient, f.name)
	}
	return f.symbols, nil
}

func (f *fakeAdapter) GetPriceData(_ context.Context, symbol string) (*types.PriceObservation, error) {
	f.calls++
	if f.fail {
		return nil, sdkerrors.Wrap(types.ErrHTTPTransient, f.name)
	}
	obs := observation(symbol, f.name, f.price)
	return &obs, nil
}

func (f *fakeAdapter) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	f.calls++
	if f.fail {
		return nil, sdkerrors.Wrap(types.ErrHTTPTransient, f.name)
	}
	out := make([]types.PriceObservation, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, observation(s, f.name, f.price))
	}
	return out, nil
}

func TestCachedSourceShortCircuits(t *testing.T) {
	inner := &fakeAdapter{name: "binance", price: "50000"}
	cached := pricecache.Wrap(inner, pricecache.New(time.Minute, time.Hour))

	_, err := cached.GetPriceData(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	_, err = cached.GetPriceData(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
}

func TestCachedSourceSupportedStaleOnFailure(t *testing.T) {
	inner := &fakeAdapter{name: "kraken", symbols: []string{"XBTUSDT"}}
	cached := pricecache.Wrap(inner, pricecache.New(time.Minute, 10*time.Millisecond))

	symbols, err := cached.GetSupportedSymbols(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"XBTUSDT"}, symbols)

	time.Sleep(30 * time.Millisecond)
	inner.fail = true
	symbols, err = cached.GetSupportedSymbols(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"XBTUSDT"}, symbols)
}

func TestCachedSourceBatchFetchesMissingOnly(t *testing.T) {
	inner := &fakeAdapter{name: "binance", price: "100"}
	cache := pricecache.New(time.Minute, time.Hour)
	cached := pricecache.Wrap(inner, cache)

	cache.SetPrice(observation("BTCUSDT", "binance", "50000"))

	out, err := cached.GetPriceDataBatch(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, 1, inner.calls)

	cachedObs, ok := cache.GetPrice("binance", "ETHUSDT")
	require.True(t, ok)
	require.Equal(t, "ETHUSDT", cachedObs.Symbol)
}
