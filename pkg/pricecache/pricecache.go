// Package pricecache implements the in-memory TTL caches the collection
// pipeline uses to shield data sources: a short-lived price cache and a
// long-lived supported-symbols cache with stale fallback.
package pricecache

import (
	"fmt"
	"sync"
	"time"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// PriceCacheEntry stores one cached observation with its insertion time.
type PriceCacheEntry struct {
	Observation types.PriceObservation
	Timestamp   time.Time
}

// symbolsEntry stores a source's supported-symbols list with its fetch time.
type symbolsEntry struct {
	Symbols   []string
	Timestamp time.Time
}

// PriceCache is a thread-safe TTL cache keyed by source and symbol. Price
// entries expire on the short TTL. Supported-symbols entries expire on the
// long TTL but remain readable as a stale fallback when a refresh fails.
type PriceCache struct {
	mu sync.RWMutex

	prices  map[string]PriceCacheEntry // source|symbol -> entry
	symbols map[string]symbolsEntry    // source -> entry

	priceTTL   time.Duration
	symbolsTTL time.Duration

	hits   uint64
	misses uint64
}

// New creates a cache with the given TTLs.
func New(priceTTL, symbolsTTL time.Duration) *PriceCache {
	if priceTTL <= 0 {
		priceTTL = 60 * time.Second
	}
	if symbolsTTL <= 0 {
		symbolsTTL = 1 * time.Hour
	}
	return &PriceCache{
		prices:     make(map[string]PriceCacheEntry),
		symbols:    make(map[string]symbolsEntry),
		priceTTL:   priceTTL,
		symbolsTTL: symbolsTTL,
	}
}

func priceKey(source, symbol string) string {
	return source + "|" + symbol
}

// GetPrice returns the cached observation if present and not expired.
func (c *PriceCache) GetPrice(source, symbol string) (types.PriceObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.prices[priceKey(source, symbol)]
	if !exists {
		c.misses++
		return types.PriceObservation{}, false
	}
	if time.Since(entry.Timestamp) > c.priceTTL {
		delete(c.prices, priceKey(source, symbol))
		c.misses++
		return types.PriceObservation{}, false
	}
	c.hits++
	return entry.Observation, true
}

// SetPrice stores an observation. Non-positive prices are never cached.
func (c *PriceCache) SetPrice(obs types.PriceObservation) {
	if obs.Price.IsNil() || !obs.Price.IsPositive() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices[priceKey(obs.Source, obs.Symbol)] = PriceCacheEntry{
		Observation: obs,
		Timestamp:   time.Now(),
	}
}

// GetSupportedSymbols returns the cached list and whether it is still fresh.
// An expired list is returned with fresh=false so callers can fall back to it
// when a refresh fails.
func (c *PriceCache) GetSupportedSymbols(source string) (symbols []string, fresh, found bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.symbols[source]
	if !exists {
		return nil, false, false
	}
	return entry.Symbols, time.Since(entry.Timestamp) <= c.symbolsTTL, true
}

// SetSupportedSymbols stores a source's supported-symbols list.
func (c *PriceCache) SetSupportedSymbols(source string, symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.symbols[source] = symbolsEntry{
		Symbols:   symbols,
		Timestamp: time.Now(),
	}
}

// PruneExpired removes expired price entries, returning how many it removed.
// Symbols entries are kept as stale fallbacks and never pruned.
func (c *PriceCache) PruneExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	pruned := 0
	for key, entry := range c.prices {
		if now.Sub(entry.Timestamp) > c.priceTTL {
			delete(c.prices, key)
			pruned++
		}
	}
	return pruned
}

// Clear removes all entries and resets the counters.
func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices = make(map[string]PriceCacheEntry)
	c.symbols = make(map[string]symbolsEntry)
	c.hits = 0
	c.misses = 0
}

// GetStats returns hit and miss counters and the current price-entry count.
func (c *PriceCache) GetStats() (hits, misses uint64, size int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses, len(c.prices)
}

// String returns a human-readable cache status.
func (c *PriceCache) String() string {
	hits, misses, size := c.GetStats()
	return fmt.Sprintf("PriceCache[size=%d, hits=%d, misses=%d, priceTTL=%s, symbolsTTL=%s]",
		size, hits, misses, c.priceTTL, c.symbolsTTL)
}
