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

const cmcAPIKeyHeader = "X-CMC_PRO_API_KEY"

// CoinMarketCap fetches USD quotes from the CoinMarketCap Pro API. The
// adapter is disabled without an API key.
type CoinMarketCap struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type cmcQuoteResponse struct {
	Status cmcStatus                 `json:"status"`
	Data   map[string][]cmcListEntry `json:"data"`
}

type cmcStatus struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type cmcListEntry struct {
	Symbol string              `json:"symbol"`
	Quote  map[string]cmcQuote `json:"quote"`
}

type cmcQuote struct {
	Price     json.Number `json:"price"`
	Volume24h json.Number `json:"volume_24h"`
}

type cmcMapResponse struct {
	Status cmcStatus `json:"status"`
	Data   []struct {
		Symbol string `json:"symbol"`
	} `json:"data"`
}

// NewCoinMarketCap creates the CoinMarketCap adapter.
func NewCoinMarketCap(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *CoinMarketCap {
	return &CoinMarketCap{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameCoinMarketCap, clientOptions(cfg)),
	}
}

func (c *CoinMarketCap) SourceName() string { return NameCoinMarketCap }

func (c *CoinMarketCap) IsEnabled() bool {
	return c.cfg.BaseURL != "" && c.cfg.APIKey != ""
}

func (c *CoinMarketCap) quotesPath() string {
	if c.cfg.TickerPath != "" {
		return c.cfg.TickerPath
	}
	return "/v2/cryptocurrency/quotes/latest"
}

func (c *CoinMarketCap) mapPath() string {
	if c.cfg.SupportedPath != "" {
		return c.cfg.SupportedPath
	}
	return "/v1/cryptocurrency/map"
}

func (c *CoinMarketCap) headers() map[string]string {
	return map[string]string{cmcAPIKeyHeader: c.cfg.APIKey}
}

// GetSupportedSymbols lists the known asset tickers, in source form.
func (c *CoinMarketCap) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	body, err := c.client.Get(ctx, c.cfg.BaseURL+c.mapPath(), c.headers())
	if err != nil {
		return nil, err
	}
	var resp cmcMapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coinmarketcap: decode map: %v", err)
	}
	if resp.Status.ErrorCode != 0 {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent,
			"coinmarketcap: api error %d: %s", resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}
	out := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, d.Symbol)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (c *CoinMarketCap) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !c.symbols.IsSymbolSupportedBySource(symbol, NameCoinMarketCap) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "coinmarketcap: %s", symbol)
	}
	obs, err := c.GetPriceDataBatch(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "coinmarketcap: no quote for %s", symbol)
	}
	return &obs[0], nil
}

// GetPriceDataBatch fetches USD quotes for many symbols in one call.
func (c *CoinMarketCap) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	wanted := make(map[string]string, len(symbols)) // asset ticker -> canonical
	assets := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !c.symbols.IsSymbolSupportedBySource(symbol, NameCoinMarketCap) {
			continue
		}
		asset := c.symbols.GetSourceSymbol(symbol, NameCoinMarketCap)
		wanted[asset] = symbol
		assets = append(assets, asset)
	}
	if len(assets) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s%s?symbol=%s&convert=USD", c.cfg.BaseURL, c.quotesPath(),
		url.QueryEscape(strings.Join(assets, ",")))
	body, err := c.client.Get(ctx, u, c.headers())
	if err != nil {
		return nil, err
	}

	var resp cmcQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coinmarketcap: decode quotes: %v", err)
	}
	if resp.Status.ErrorCode != 0 {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent,
			"coinmarketcap: api error %d: %s", resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}

	out := make([]types.PriceObservation, 0, len(wanted))
	for asset, entries := range resp.Data {
		canonical, ok := wanted[asset]
		if !ok || len(entries) == 0 {
			continue
		}
		quote, ok := entries[0].Quote["USD"]
		if !ok {
			continue
		}
		price, err := math.LegacyNewDecFromStr(quote.Price.String())
		if err != nil || !price.IsPositive() {
			continue
		}
		obs := types.PriceObservation{
			Symbol:    canonical,
			Source:    NameCoinMarketCap,
			Price:     price,
			Timestamp: time.Now().UTC(),
			Metadata: map[string]string{
				"pair":          asset,
				"quoteCurrency": "USD",
			},
		}
		if vol, err := math.LegacyNewDecFromStr(quote.Volume24h.String()); err == nil && vol.IsPositive() {
			obs.Volume = vol
		}
		out = append(out, obs)
	}
	return out, nil
}
