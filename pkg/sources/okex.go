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

// OKEx fetches spot tickers from the OKX v5 public market API.
type OKEx struct {
	cfg     SourceConfig
	symbols *symbolmap.SymbolMap
	client  *httpclient.Client
}

type okexEnvelope struct {
	Code string       `json:"code"`
	Msg  string       `json:"msg"`
	Data []okexTicker `json:"data"`
}

type okexTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	Vol24h string `json:"vol24h"`
}

// NewOKEx creates the OKEx adapter.
func NewOKEx(cfg SourceConfig, symbols *symbolmap.SymbolMap, pool *httpclient.Pool) *OKEx {
	return &OKEx{
		cfg:     cfg,
		symbols: symbols,
		client:  pool.ForSourceWith(NameOKEx, clientOptions(cfg)),
	}
}

func (o *OKEx) SourceName() string { return NameOKEx }

func (o *OKEx) IsEnabled() bool { return o.cfg.BaseURL != "" }

func (o *OKEx) tickerPath() string {
	if o.cfg.TickerPath != "" {
		return o.cfg.TickerPath
	}
	return "/api/v5/market/ticker"
}

func (o *OKEx) batchPath() string {
	if o.cfg.BatchPath != "" {
		return o.cfg.BatchPath
	}
	return "/api/v5/market/tickers"
}

// GetSupportedSymbols lists every spot instrument, in source form.
func (o *OKEx) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	tickers, err := o.fetchAllTickers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.InstID)
	}
	return out, nil
}

// GetPriceData fetches one observation.
func (o *OKEx) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if !o.symbols.IsSymbolSupportedBySource(symbol, NameOKEx) {
		return nil, sdkerrors.Wrapf(types.ErrUnsupportedSymbol, "okex: %s", symbol)
	}
	instID := o.symbols.GetSourceSymbol(symbol, NameOKEx)
	u := fmt.Sprintf("%s%s?instId=%s", o.cfg.BaseURL, o.tickerPath(), url.QueryEscape(instID))

	body, err := o.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	env, err := o.decode(body)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, sdkerrors.Wrapf(types.ErrNoData, "okex: no ticker for %s", instID)
	}
	return o.observation(symbol, env.Data[0])
}

// GetPriceDataBatch fetches the full SPOT ticker list once and filters it.
func (o *OKEx) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	wanted := make(map[string]string, len(symbols)) // instId -> canonical
	for _, symbol := range symbols {
		if !o.symbols.IsSymbolSupportedBySource(symbol, NameOKEx) {
			continue
		}
		wanted[o.symbols.GetSourceSymbol(symbol, NameOKEx)] = symbol
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	tickers, err := o.fetchAllTickers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.PriceObservation, 0, len(wanted))
	for _, t := range tickers {
		canonical, ok := wanted[t.InstID]
		if !ok {
			continue
		}
		obs, err := o.observation(canonical, t)
		if err != nil {
			continue
		}
		out = append(out, *obs)
	}
	return out, nil
}

func (o *OKEx) fetchAllTickers(ctx context.Context) ([]okexTicker, error) {
	u := fmt.Sprintf("%s%s?instType=SPOT", o.cfg.BaseURL, o.batchPath())
	body, err := o.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	env, err := o.decode(body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (o *OKEx) decode(body []byte) (*okexEnvelope, error) {
	var env okexEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "okex: decode: %v", err)
	}
	if env.Code != "" && env.Code != "0" {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "okex: api code %s: %s", env.Code, env.Msg)
	}
	return &env, nil
}

func (o *OKEx) observation(canonical string, t okexTicker) (*types.PriceObservation, error) {
	price, err := math.LegacyNewDecFromStr(t.Last)
	if err != nil || !price.IsPositive() {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "okex: bad price %q for %s", t.Last, canonical)
	}
	obs := &types.PriceObservation{
		Symbol:    canonical,
		Source:    NameOKEx,
		Price:     price,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]string{
			"pair":          t.InstID,
			"quoteCurrency": "USDT",
		},
	}
	if vol, err := math.LegacyNewDecFromStr(t.Vol24h); err == nil && vol.IsPositive() {
		obs.Volume = vol
	}
	return obs, nil
}
