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

const coingeckoAPIKeyHeader = "x-cg-demo-api-key"

// CoinGecko fetches USD simple prices from the CoinGecko API. The symbol map
// translates canonical symbols to CoinGecko coin ids (e.g. BTCUSDT ->
// bitcoin). An API key is optional; without one the public rate limits apply.
type CoinGecko struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type coingeckoCoin struct {
	ID string `json:"id"`
}

// NewCoinGecko creates the CoinGecko adapter.
func NewCoinGecko(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *CoinGecko {
	return &CoinGecko{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameCoinGecko, clientOptions(cfg)),
	}
}

func (c *CoinGecko) SourceName() string { return NameCoinGecko }

func (c *CoinGecko) IsEnabled() bool { return c.cfg.BaseURL != "" }

func (c *CoinGecko) pricePath() string {
	if c.cfg.TickerPath != "" {
		return c.cfg.TickerPath
	}
	return "/api/v3/simple/price"
}

func (c *CoinGecko) listPath() string {
	if c.cfg.SupportedPath != "" {
		return c.cfg.SupportedPath
	}
	return "/api/v3/coins/list"
}

func (c *CoinGecko) headers() map[string]string {
	if c.cfg.APIKey == "" {
		return nil
	}
	return map[string]string{coingeckoAPIKeyHeader: c.cfg.APIKey}
}

// GetSupportedSymbols lists every coin id, in source form.
func (c *CoinGecko) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	body, err := c.client.Get(ctx, c.cfg.BaseURL+c.listPath(), c.headers())
	if err != nil {
		return nil, err
	}
	var coins []coingeckoCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coingecko: decode coin list: %v", err)
	}
	out := make([]string, 0, len(coins))
	for _, coin := range coins {
		out = append(out, coin.ID)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (c *CoinGecko) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !c.symbols.IsSymbolSupportedBySource(symbol, NameCoinGecko) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "coingecko: %s", symbol)
	}
	obs, err := c.GetPriceDataBatch(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "coingecko: no price for %s", symbol)
	}
	return &obs[0], nil
}

// GetPriceDataBatch fetches USD prices for many coin ids in one call.
func (c *CoinGecko) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	wanted := make(map[string]string, len(symbols)) // coin id -> canonical
	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !c.symbols.IsSymbolSupportedBySource(symbol, NameCoinGecko) {
			continue
		}
		id := c.symbols.GetSourceSymbol(symbol, NameCoinGecko)
		wanted[id] = symbol
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s%s?ids=%s&vs_currencies=usd&include_24hr_vol=true",
		c.cfg.BaseURL, c.pricePath(), url.QueryEscape(strings.Join(ids, ",")))
	body, err := c.client.Get(ctx, u, c.headers())
	if err != nil {
		return nil, err
	}

	var prices map[string]map[string]json.Number
	if err := json.Unmarshal(body, &prices); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coingecko: decode prices: %v", err)
	}

	out := make([]types.PriceObservation, 0, len(wanted))
	for id, quote := range prices {
		canonical, ok := wanted[id]
		if !ok {
			continue
		}
		price, err := math.LegacyNewDecFromStr(quote["usd"].String())
		if err != nil || !price.IsPositive() {
			continue
		}
		obs := types.PriceObservation{
			Symbol:    canonical,
			Source:    NameCoinGecko,
			Price:     price,
			Timestamp: time.Now().UTC(),
			Metadata: map[string]string{
				"pair":          id,
				"quoteCurrency": "USD",
			},
		}
		if vol, err := math.LegacyNewDecFromStr(quote["usd_24h_vol"].String()); err == nil && vol.IsPositive() {
			obs.Volume = vol
		}
		out = append(out, obs)
	}
	return out, nil
}
