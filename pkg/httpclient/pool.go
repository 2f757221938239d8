package httpclient

import (
	"sync"

	"cosmossdk.io/log"
)

// Pool hands out one resilient client per source name. The resilience state
// (breaker, bulkhead, limiter) is per source, so one source's open circuit
// never affects another.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
	opts    Options
	logger  log.Logger
}

// NewPool creates a pool using opts as the default per-source profile.
func NewPool(opts Options, logger log.Logger) *Pool {
	return &Pool{
		clients: make(map[string]*Client),
		opts:    opts,
		logger:  logger,
	}
}

// ForSource returns the client for a source, creating it on first use.
func (p *Pool) ForSource(source string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[source]; ok {
		return c
	}
	c := New(source, p.opts, p.logger)
	p.clients[source] = c
	return c
}

// ForSourceWith returns the client for a source, creating it with the given
// options on first use. Used for sources with a non-default timeout profile.
func (p *Pool) ForSourceWith(source string, opts Options) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[source]; ok {
		return c
	}
	c := New(source, opts, p.logger)
	p.clients[source] = c
	return c
}
