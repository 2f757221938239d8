package pricecache

import (
	"context"

	"github.com/paw-chain/oracle-feeder/pkg/sources"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// CachedSource wraps a SourceAdapter with the TTL cache. Fresh cache entries
// short-circuit the network; fetched results populate the cache. An expired
// supported-symbols list is served stale when the refresh fails.
type CachedSource struct {
	inner sources.SourceAdapter
	cache *PriceCache
}

// Wrap decorates an adapter with the shared cache.
func Wrap(inner sources.SourceAdapter, cache *PriceCache) *CachedSource {
	return &CachedSource{inner: inner, cache: cache}
}

// WrapAll decorates every adapter with the shared cache.
func WrapAll(adapters []sources.SourceAdapter, cache *PriceCache) []sources.SourceAdapter {
	out := make([]sources.SourceAdapter, len(adapters))
	for i, a := range adapters {
		out[i] = Wrap(a, cache)
	}
	return out
}

func (s *CachedSource) SourceName() string { return s.inner.SourceName() }

func (s *CachedSource) IsEnabled() bool { return s.inner.IsEnabled() }

// GetSupportedSymbols serves the fresh cached list, refreshes on expiry, and
// falls back to the stale list when the refresh fails.
func (s *CachedSource) GetSupportedSymbols(ctx context.Context) ([]string, error) {
	cached, fresh, found := s.cache.GetSupportedSymbols(s.SourceName())
	if found && fresh {
		return cached, nil
	}

	symbols, err := s.inner.GetSupportedSymbols(ctx)
	if err != nil {
		if found {
			return cached, nil
		}
		return nil, err
	}
	s.cache.SetSupportedSymbols(s.SourceName(), symbols)
	return symbols, nil
}

// GetPriceData serves the cached observation when fresh.
func (s *CachedSource) GetPriceData(ctx context.Context, symbol string) (*types.PriceObservation, error) {
	if obs, ok := s.cache.GetPrice(s.SourceName(), symbol); ok {
		return &obs, nil
	}
	obs, err := s.inner.GetPriceData(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.cache.SetPrice(*obs)
	return obs, nil
}

// GetPriceDataBatch serves cached observations where fresh and fetches the
// remainder in one call.
func (s *CachedSource) GetPriceDataBatch(ctx context.Context, symbols []string) ([]types.PriceObservation, error) {
	out := make([]types.PriceObservation, 0, len(symbols))
	missing := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if obs, ok := s.cache.GetPrice(s.SourceName(), symbol); ok {
			out = append(out, obs)
			continue
		}
		missing = append(missing, symbol)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.inner.GetPriceDataBatch(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	for _, obs := range fetched {
		s.cache.SetPrice(obs)
	}
	return append(out, fetched...), nil
}
