package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/paw-chain/oracle-feeder/pkg/httpclient"
	"github.com/paw-chain/oracle-feeder/pkg/symbolmap"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// Binance fetches spot tickers from the Binance public API.
type Binance struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewBinance creates the Binance adapter.
func NewBinance(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *Binance {
	return &Binance{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameBinance, clientOptions(cfg)),
	}
}

func (b *Binance) SourceName() string { return NameBinance }

func (b *Binance) IsEnabled() bool { return b.cfg.BaseURL != "" }

func (b *Binance) tickerPath() string {
	if b.cfg.TickerPath != "" {
		return b.cfg.TickerPath
	}
	return "/api/v3/ticker/price"
}

// GetSupportedSymbols lists every spot symbol Binance quotes, in source form.
func (b *Binance) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	body, err := b.client.Get(ctx, b.cfg.BaseURL+b.tickerPath(), nil)
	if err != nil {
		return nil, err
	}
	var tickers []binanceTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "binance: decode symbol list: %v", err)
	}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.Symbol)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (b *Binance) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !b.symbols.IsSymbolSupportedBySource(symbol, NameBinance) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "binance: %s", symbol)
	}
	sourceSymbol := b.symbols.GetSourceSymbol(symbol, NameBinance)
	u := fmt.Sprintf("%s%s?symbol=%s", b.cfg.BaseURL, b.tickerPath(), url.QueryEscape(sourceSymbol))

	body, err := b.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	var t binanceTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "binance: decode ticker: %v", err)
	}
	return b.observation(symbol, t)
}

// GetPriceDataBatch fetches many symbols in a single ticker call.
func (b *Binance) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	wanted := make(map[string]string, len(symbols)) // source symbol -> canonical
	quoted := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !b.symbols.IsSymbolSupportedBySource(symbol, NameBinance) {
			continue
		}
		src := b.symbols.GetSourceSymbol(symbol, NameBinance)
		wanted[src] = symbol
		quoted = append(quoted, fmt.Sprintf("%q", src))
	}
	if len(quoted) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s%s?symbols=%s", b.cfg.BaseURL, b.tickerPath(),
		url.QueryEscape("["+strings.Join(quoted, ",")+"]"))
	body, err := b.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	var tickers []binanceTicker
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "binance: decode batch: %v", err)
	}

	out := make([]types.PriceObservation, 0, len(tickers))
	for _, t := range tickers {
		canonical, ok := wanted[t.Symbol]
		if !ok {
			continue
		}
		obs, err := b.observation(canonical, t)
		if err != nil {
			continue
		}
		out = append(out, *obs)
	}
	return out, nil
}

func (b *Binance) observation(canonical string, t binanceTicker) (*types.PriceObservation, error) {
	price, err := math.LegacyNewDecFromStr(t.Price)
	if err != nil || !price.IsPositive() {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "binance: bad price %q for %s", t.Price, canonical)
	}
	return &types.PriceObservation{
		Symbol:    canonical,
		Source:    NameBinance,
		Price:     price,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]string{
			"pair":          t.Symbol,
			"quoteCurrency": "USDT",
		},
	}, nil
}

// clientOptions maps a source's configured timeout onto the shared profile.
func clientOptions(cfg SourceConfig) httpclient.Options {
	opts := httpclient.DefaultOptions()
	if cfg.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return opts
}
