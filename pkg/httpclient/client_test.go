package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/stretchr/testify/require"

	"github.com/paw-chain/oracle-feeder/pkg/httpclient"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

func fastOptions() httpclient.Options {
	opts := httpclient.DefaultOptions()
	opts.Timeout = 2 * time.Second
	opts.RetryBaseInterval = time.Millisecond
	opts.RetryMaxInterval = 5 * time.Millisecond
	return opts
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := httpclient.New("test", fastOptions(), log.NewNopLogger())
	body, err := c.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
	require.EqualValues(t, 3, calls.Load())
}

func TestGetPermanentFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := httpclient.New("test", fastOptions(), log.NewNopLogger())
	_, err := c.Get(context.Background(), srv.URL, nil)
	require.True(t, sdkerrors.IsOf(err, types.ErrHTTPPermanent))
	require.EqualValues(t, 1, calls.Load())
}

func TestGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := httpclient.New("test", fastOptions(), log.NewNopLogger())
	_, err := c.Get(context.Background(), srv.URL, map[string]string{"X-Api-Key": "secret"})
	require.NoError(t, err)
}

func TestCircuitOpensAfterThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := fastOptions()
	opts.MaxRetries = 10
	opts.BreakerThreshold = 3
	opts.BreakerCooldown = time.Minute

	c := httpclient.New("test", opts, log.NewNopLogger())
	_, err := c.Get(context.Background(), srv.URL, nil)
	// The breaker trips mid-retry and short-circuits the rest.
	require.True(t, sdkerrors.IsOf(err, types.ErrCircuitOpen))

	_, err = c.Get(context.Background(), srv.URL, nil)
	require.True(t, sdkerrors.IsOf(err, types.ErrCircuitOpen))
}

func TestGetCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := httpclient.New("test", fastOptions(), log.NewNopLogger())
	_, err := c.Get(ctx, srv.URL, nil)
	require.Error(t, err)
}
