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

// Kraken fetches spot tickers from the Kraken public API. Kraken uses its own
// pair names (XBT for BTC), so the symbol map carries explicit entries.
type Kraken struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type krakenTickerResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

type krakenTicker struct {
	// C holds [last trade price, lot volume].
	C []string `json:"c"`
	// V holds [volume today, volume 24h].
	V []string `json:"v"`
}

type krakenPairsResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// NewKraken creates the Kraken adapter.
func NewKraken(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *Kraken {
	return &Kraken{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameKraken, clientOptions(cfg)),
	}
}

func (k *Kraken) SourceName() string { return NameKraken }

func (k *Kraken) IsEnabled() bool { return k.cfg.BaseURL != "" }

func (k *Kraken) tickerPath() string {
	if k.cfg.TickerPath != "" {
		return k.cfg.TickerPath
	}
	return "/0/public/Ticker"
}

func (k *Kraken) pairsPath() string {
	if k.cfg.SupportedPath != "" {
		return k.cfg.SupportedPath
	}
	return "/0/public/AssetPairs"
}

// GetSupportedSymbols lists every tradable pair, in source form.
func (k *Kraken) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	body, err := k.client.Get(ctx, k.cfg.BaseURL+k.pairsPath(), nil)
	if err != nil {
		return nil, err
	}
	var resp krakenPairsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "kraken: decode asset pairs: %v", err)
	}
	if len(resp.Error) > 0 {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "kraken: api error: %s", strings.Join(resp.Error, "; "))
	}
	out := make([]string, 0, len(resp.Result))
	for pair := range resp.Result {
		out = append(out, pair)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (k *Kraken) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !k.symbols.IsSymbolSupportedBySource(symbol, NameKraken) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "kraken: %s", symbol)
	}
	obs, err := k.GetPriceDataBatch(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "kraken: no ticker for %s", symbol)
	}
	return &obs[0], nil
}

// GetPriceDataBatch fetches many pairs in a single Ticker call. Result keys
// Kraken returns under an alias the request did not use are skipped.
func (k *Kraken) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	wanted := make(map[string]string, len(symbols)) // pair -> canonical
	pairs := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if !k.symbols.IsSymbolSupportedBySource(symbol, NameKraken) {
			continue
		}
		pair := k.symbols.GetSourceSymbol(symbol, NameKraken)
		wanted[pair] = symbol
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	u := fmt.Sprintf("%s%s?pair=%s", k.cfg.BaseURL, k.tickerPath(),
		url.QueryEscape(strings.Join(pairs, ",")))
	body, err := k.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}

	var resp krakenTickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "kraken: decode ticker: %v", err)
	}
	if len(resp.Error) > 0 {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "kraken: api error: %s", strings.Join(resp.Error, "; "))
	}

	out := make([]types.PriceObservation, 0, len(wanted))
	for pair, t := range resp.Result {
		canonical, ok := wanted[pair]
		if !ok || len(t.C) == 0 {
			continue
		}
		price, err := math.LegacyNewDecFromStr(t.C[0])
		if err != nil || !price.IsPositive() {
			continue
		}
		obs := types.PriceObservation{
			Symbol:    canonical,
			Source:    NameKraken,
			Price:     price,
			Timestamp: time.Now().UTC(),
			Metadata: map[string]string{
				"pair":          pair,
				"quoteCurrency": "USD",
			},
		}
		if len(t.V) > 1 {
			if vol, err := math.LegacyNewDecFromStr(t.V[1]); err == nil && vol.IsPositive() {
				obs.Volume = vol
			}
		}
		out = append(out, obs)
	}
	return out, nil
}
