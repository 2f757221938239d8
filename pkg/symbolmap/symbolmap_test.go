package symbolmap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/symbolmap"
)

func testMap() *symbolmap.SymbolMap {
	return symbolmap.New(
		[]string{"BTCUSDT", "ETHUSDT", "NEOUSDT"},
		map[string]map[string]string{
			"BTCUSDT": {
				"okex":      "BTC-USDT",
				"coinbase":  "BTC-USD",
				"coingecko": "bitcoin",
				"kraken":    "XBTUSDT",
			},
			"NEOUSDT": {
				"coinbase": "", // not listed on coinbase
			},
		},
	)
}

func TestGetSourceSymbol(t *testing.T) {
	m := testMap()

	require.Equal(t, "BTC-USDT", m.GetSourceSymbol("BTCUSDT", "okex"))
	require.Equal(t, "bitcoin", m.GetSourceSymbol("BTCUSDT", "coingecko"))

	// Unmapped source falls back to the canonical symbol.
	require.Equal(t, "BTCUSDT", m.GetSourceSymbol("BTCUSDT", "binance"))

	// Unknown canonical falls back unchanged.
	require.Equal(t, "DOGEUSDT", m.GetSourceSymbol("DOGEUSDT", "okex"))
}

func TestGetSourceSymbolIdempotent(t *testing.T) {
	m := testMap()
	once := m.GetSourceSymbol("ETHUSDT", "okex")
	require.Equal(t, once, m.GetSourceSymbol(once, "okex"))
}

func TestIsSymbolSupportedBySource(t *testing.T) {
	m := testMap()

	require.True(t, m.IsSymbolSupportedBySource("BTCUSDT", "okex"))
	// Unmapped means supported.
	require.True(t, m.IsSymbolSupportedBySource("ETHUSDT", "binance"))
	// Explicit empty mapping means not listed.
	require.False(t, m.IsSymbolSupportedBySource("NEOUSDT", "coinbase"))
}

func TestGetSymbolsForDataSource(t *testing.T) {
	m := testMap()

	require.Equal(t, []string{"BTCUSDT", "ETHUSDT", "NEOUSDT"}, m.GetSymbolsForDataSource("binance"))
	require.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, m.GetSymbolsForDataSource("coinbase"))
}
