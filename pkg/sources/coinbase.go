package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/math"

	"github.com/paw-chain/oracle-feeder/pkg/httpclient"
	"github.com/paw-chain/oracle-feeder/pkg/symbolmap"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// Coinbase fetches product tickers from the Coinbase Exchange API.
type Coinbase struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type coinbaseTicker struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

type coinbaseProduct struct {
	ID            string `json:"id"`
	QuoteCurrency string `json:"quote_currency"`
}

// NewCoinbase creates the Coinbase adapter.
func NewCoinbase(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *Coinbase {
	return &Coinbase{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameCoinbase, clientOptions(cfg)),
	}
}

func (c *Coinbase) SourceName() string { return NameCoinbase }

func (c *Coinbase) IsEnabled() bool { return c.cfg.BaseURL != "" }

func (c *Coinbase) supportedPath() string {
	if c.cfg.SupportedPath != "" {
		return c.cfg.SupportedPath
	}
	return "/products"
}

// GetSupportedSymbols lists every product id, in source form (e.g. BTC-USD).
func (c *Coinbase) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	body, err := c.client.Get(ctx, c.cfg.BaseURL+c.supportedPath(), nil)
	if err != nil {
		return nil, err
	}
	var products []coinbaseProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coinbase: decode products: %v", err)
	}
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (c *Coinbase) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !c.symbols.IsSymbolSupportedBySource(symbol, NameCoinbase) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "coinbase: %s", symbol)
	}
	productID := c.symbols.GetSourceSymbol(symbol, NameCoinbase)
	u := fmt.Sprintf("%s/products/%s/ticker", c.cfg.BaseURL, url.PathEscape(productID))

	body, err := c.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	var t coinbaseTicker
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coinbase: decode ticker: %v", err)
	}

	price, err := math.LegacyNewDecFromStr(t.Price)
	if err != nil || !price.IsPositive() {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "coinbase: bad price %q for %s", t.Price, symbol)
	}
	obs := &types.PriceObservation{
		Symbol:    symbol,
		Source:    NameCoinbase,
		Price:     price,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]string{
			"pair":          productID,
			"quoteCurrency": "USD",
		},
	}
	if vol, err := math.LegacyNewDecFromStr(t.Volume); err == nil && vol.IsPositive() {
		obs.Volume = vol
	}
	return obs, nil
}

// GetPriceDataBatch fans out per symbol; the Exchange API has no batch ticker.
func (c *Coinbase) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	return fanOutBatch(ctx, c, c.symbols, symbols), nil
}
