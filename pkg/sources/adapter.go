// Package sources implements the exchange data-source adapters. Each adapter
// normalises one exchange's payloads into PriceObservations; errors surface
// as per-symbol omissions so a bad source never fails a whole cycle.
package sources

import (
	"context"

	"cosmossdk.io/log"

	"github.com/paw-chain/oracle-feeder/pkg/httpclient"
	"github.com/paw-chain/oracle-feeder/pkg/symbolmap"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// SourceAdapter is the uniform capability set every exchange adapter exposes.
type SourceAdapter interface {
	// SourceName is the stable identifier used by the symbol map and logs.
	SourceName() string
	// IsEnabled reports whether the adapter has the endpoints and
	// credentials it needs. Disabled adapters are excluded at startup.
	IsEnabled() bool
	// GetSupportedSymbols lists the source-side symbols, in source form.
	GetSupportedSymbols(ctx context.Context) ([]string, error)
	// GetPriceData fetches one observation for a canonical symbol.
	GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error)
	// GetPriceDataBatch fetches observations for many canonical symbols.
	// Symbols the source does not support are skipped, not failed.
	GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error)
}

// Source names, referenced by the symbol map and configuration.
const (
	NameBinance       = "binance"
	NameOKEx          = "okex"
	NameCoinbase      = "coinbase"
	NameCoinMarketCap = "coinmarketcap"
	NameCoinGecko     = "coingecko"
	NameKraken        = "kraken"
)

// SourceConfig carries the per-source settings from configuration.
type SourceConfig struct {
	BaseURL        string
	TickerPath     string
	BatchPath      string
	SupportedPath  string
	TimeoutSeconds int
	APIKey         string
	APISecret      string
	Passphrase     string
}

// Config carries the per-source sections of the configuration.
type Config struct {
	Binance       SourceConfig
	OKEx          SourceConfig
	Coinbase      SourceConfig
	CoinMarketCap SourceConfig
	CoinGecko     SourceConfig
	Kraken        SourceConfig
}

// NewRegistry builds the enabled adapters from configuration. Disabled
// adapters (missing base URL, or missing a required API key) are excluded
// eagerly and logged.
func NewRegistry(cfg Config, symbols *symbolmap.SymbolMap, pool *httpclient.Pool, logger log.Logger) []SourceAdapter {
	all := []SourceAdapter{
		NewBinance(cfg.Binance, symbols, pool),
		NewOKEx(cfg.OKEx, symbols, pool),
		NewCoinbase(cfg.Coinbase, symbols, pool),
		NewCoinMarketCap(cfg.CoinMarketCap, symbols, pool),
		NewCoinGecko(cfg.CoinGecko, symbols, pool),
		NewKraken(cfg.Kraken, symbols, pool),
	}

	enabled := make([]SourceAdapter, 0, len(all))
	for _, a := range all {
		if !a.IsEnabled() {
			logger.Info("data source disabled", "source", a.SourceName())
			continue
		}
		enabled = append(enabled, a)
	}
	return enabled
}

// fanOutBatch implements GetPriceDataBatch for adapters whose API has no
// batch endpoint: one call per supported symbol, failures skipped. The
// per-symbol errors are already logged by the transport layer.
func fanOutBatch(ctx context.Context, a SourceAdapter, m *symbolmap.SymbolMap, symbols []string) []types.PriceObservation {
	out := make([]types.PriceObservation, 0, len(symbols))
	for _, symbol := range symbols {
		if !m.IsSymbolSupportedBySource(symbol, a.SourceName()) {
			continue
		}
		obs, err := a.GetPriceData(ctx, symbol)
		if err != nil || obs == nil {
			continue
		}
		out = append(out, *obs)
	}
	return out
}
