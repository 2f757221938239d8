// Package httpclient wraps the HTTP client every source adapter shares with
// per-source retry, circuit breaking, timeout, rate limiting and a bulkhead
// bounding in-flight requests, so one slow source cannot starve the rest.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const maxResponseBytes = 4 << 20

// Options configure one per-source client.
type Options struct {
	// Timeout is the per-attempt hard cap.
	Timeout time.Duration
	// MaxRetries bounds retries on transient failures.
	MaxRetries uint64
	// RetryBaseInterval and RetryMaxInterval shape the exponential backoff.
	RetryBaseInterval time.Duration
	RetryMaxInterval  time.Duration
	// BreakerThreshold consecutive failures trip the circuit for
	// BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
	// MaxInFlight bounds concurrent requests; overflow fails fast.
	MaxInFlight int64
	// RateLimit caps requests per second; zero means unlimited.
	RateLimit rate.Limit
}

// DefaultOptions returns the production profile.
func DefaultOptions() Options {
	return Options{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryBaseInterval: 100 * time.Millisecond,
		RetryMaxInterval:  2 * time.Second,
		BreakerThreshold:  5,
		BreakerCooldown:   30 * time.Second,
		MaxInFlight:       2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.RetryBaseInterval <= 0 {
		o.RetryBaseInterval = d.RetryBaseInterval
	}
	if o.RetryMaxInterval <= 0 {
		o.RetryMaxInterval = d.RetryMaxInterval
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = d.BreakerThreshold
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = d.BreakerCooldown
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = d.MaxInFlight
	}
	return o
}

// Client is the resilient HTTP client for a single source.
type Client struct {
	source   string
	http     *http.Client
	breaker  *CircuitBreaker
	inflight *semaphore.Weighted
	limiter  *rate.Limiter
	opts     Options
	logger   log.Logger
}

// New creates a client for a named source.
func New(source string, opts Options, logger log.Logger) *Client {
	opts = opts.withDefaults()
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, 1)
	}
	return &Client{
		source:   source,
		http:     &http.Client{Timeout: opts.Timeout},
		breaker:  NewCircuitBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
		inflight: semaphore.NewWeighted(opts.MaxInFlight),
		limiter:  limiter,
		opts:     opts,
		logger:   logger.With("source", source),
	}
}

// Source returns the source name the client serves.
func (c *Client) Source() string { return c.source }

// Get performs a GET with the full resilience stack and returns the body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if !c.inflight.TryAcquire(1) {
		return nil, sdkerrors.Wrapf(types.ErrBulkheadRejected, "source %s", c.source)
	}
	defer c.inflight.Release(1)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, sdkerrors.Wrapf(types.ErrCancelled, "source %s: %v", c.source, err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.RetryBaseInterval
	bo.MaxInterval = c.opts.RetryMaxInterval

	attempt := func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(sdkerrors.Wrapf(types.ErrCancelled, "source %s: %v", c.source, err))
		}
		if !c.breaker.Allow() {
			return nil, backoff.Permanent(sdkerrors.Wrapf(types.ErrCircuitOpen, "source %s", c.source))
		}

		body, err := c.doOnce(ctx, url, headers)
		if err == nil {
			c.breaker.RecordSuccess()
			return body, nil
		}
		if sdkerrors.IsOf(err, types.ErrHTTPTransient) {
			c.breaker.RecordFailure()
			c.logger.Debug("transient fetch failure", "url", url, "err", err)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	return backoff.RetryWithData(attempt,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.opts.MaxRetries), ctx))
}

func (c *Client) doOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "source %s: %v", c.source, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, sdkerrors.Wrapf(types.ErrCancelled, "source %s: %v", c.source, ctx.Err())
		}
		return nil, sdkerrors.Wrapf(types.ErrHTTPTransient, "source %s: %v", c.source, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return nil, sdkerrors.Wrapf(types.ErrHTTPTransient, "source %s: read body: %v", c.source, readErr)
		}
		return body, nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return nil, sdkerrors.Wrapf(types.ErrHTTPTransient, "source %s: status %d", c.source, resp.StatusCode)
	default:
		return nil, sdkerrors.Wrapf(types.ErrHTTPPermanent, "source %s: status %d: %s",
			c.source, resp.StatusCode, truncate(body, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}
