// Package feeder drives the aggregation cycle: concurrent source fan-out,
// aggregation, batching, sweep, submission and attestation.
package feeder

import (
	"context"
	"sync"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"golang.org/x/sync/errgroup"

	"github.com/paw-chain/oracle-feeder/pkg/aggregator"
	"github.com/paw-chain/oracle-feeder/pkg/attestation"
	"github.com/paw-chain/oracle-feeder/pkg/batch"
	"github.com/paw-chain/oracle-feeder/pkg/metrics"
	"github.com/paw-chain/oracle-feeder/pkg/sources"
	"github.com/paw-chain/oracle-feeder/pkg/submitter"
	"github.com/paw-chain/oracle-feeder/pkg/sweeper"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// Feeder owns one pipeline instance. Cycles run serially; within a cycle the
// source adapters are fanned out concurrently.
type Feeder struct {
	symbols    []string
	adapters   []sources.SourceAdapter
	aggregator *aggregator.Aggregator
	builder    *batch.Builder
	sweeper    *sweeper.Sweeper
	submitter  *submitter.Submitter
	attester   *attestation.Attester
	logger     log.Logger
}

// New assembles a Feeder. The sweeper and attester are optional.
func New(
	symbols []string,
	adapters []sources.SourceAdapter,
	agg *aggregator.Aggregator,
	builder *batch.Builder,
	swp *sweeper.Sweeper,
	sub *submitter.Submitter,
	att *attestation.Attester,
	logger log.Logger,
) *Feeder {
	return &Feeder{
		symbols:    symbols,
		adapters:   adapters,
		aggregator: agg,
		builder:    builder,
		sweeper:    swp,
		submitter:  sub,
		attester:   att,
		logger:     logger,
	}
}

// Run executes cycles at the given interval until the context ends.
func (f *Feeder) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := f.RunCycle(ctx); err != nil {
			if sdkerrors.IsOf(err, types.ErrCancelled) {
				return err
			}
			f.logger.Error("cycle failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return sdkerrors.Wrapf(types.ErrCancelled, "%v", ctx.Err())
		case <-ticker.C:
		}
	}
}

// RunCycle executes one collect, aggregate, submit pass.
func (f *Feeder) RunCycle(ctx context.Context) error {
	start := time.Now()

	observations, err := f.collect(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return err
	}

	prices := f.aggregator.AggregateAll(observations)
	// observations is keyed by symbol, so the difference is the number of
	// symbols that had raw data but failed aggregation.
	observedSymbols := len(observations)
	droppedSymbols := observedSymbols - len(prices)
	metrics.SymbolsAggregated.Add(float64(len(prices)))
	metrics.SymbolsDropped.Add(float64(droppedSymbols))
	if len(prices) == 0 {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return sdkerrors.Wrap(types.ErrNoData, "no symbol aggregated")
	}

	batches := f.builder.Build(prices)
	var firstErr error
	for _, subBatch := range batches {
		if err := f.submitOne(ctx, subBatch); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	if firstErr != nil {
		metrics.CyclesTotal.WithLabelValues("failed").Inc()
		return firstErr
	}
	metrics.CyclesTotal.WithLabelValues("success").Inc()
	f.logger.Info("cycle complete",
		"symbols", len(prices), "batches", len(batches), "took", time.Since(start))
	return nil
}

// collect fans out over the adapters and groups observations by symbol. An
// adapter failure drops that source for the cycle, never the cycle itself.
func (f *Feeder) collect(ctx context.Context) (map[string][]types.PriceObservation, error) {
	var mu sync.Mutex
	bySymbol := make(map[string][]types.PriceObservation, len(f.symbols))

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range f.adapters {
		g.Go(func() error {
			observations, err := adapter.GetPriceDataBatch(gctx, f.symbols)
			if err != nil {
				metrics.FetchesTotal.WithLabelValues(adapter.SourceName(), "error").Inc()
				f.logger.Error("source fetch failed", "source", adapter.SourceName(), "err", err)
				return nil
			}
			metrics.FetchesTotal.WithLabelValues(adapter.SourceName(), "ok").Inc()
			metrics.ObservationsCollected.WithLabelValues(adapter.SourceName()).
				Add(float64(len(observations)))

			mu.Lock()
			for _, obs := range observations {
				bySymbol[obs.Symbol] = append(bySymbol[obs.Symbol], obs)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, sdkerrors.Wrapf(types.ErrCancelled, "%v", ctx.Err())
	}

	total := 0
	for _, observations := range bySymbol {
		total += len(observations)
	}
	if total == 0 {
		return nil, sdkerrors.Wrap(types.ErrNoData, "no source returned observations")
	}
	return bySymbol, nil
}

// submitOne runs the sweep, submit, attest sequence for one sub-batch. Sweep
// and attestation failures are warnings; submission failures surface.
func (f *Feeder) submitOne(ctx context.Context, subBatch types.PriceBatch) error {
	if f.sweeper != nil {
		switch txHash, err := f.sweeper.Sweep(ctx); {
		case err != nil:
			metrics.SweepsTotal.WithLabelValues("failed").Inc()
		case txHash != "":
			metrics.SweepsTotal.WithLabelValues("swept").Inc()
		default:
			metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		}
	}

	if err := f.submitter.Submit(ctx, subBatch); err != nil {
		metrics.BatchesSubmitted.WithLabelValues("failed").Inc()
		return err
	}
	metrics.BatchesSubmitted.WithLabelValues("sent").Inc()

	if f.attester != nil {
		hashes := f.submitter.Statuses().TxHashes(subBatch.BatchID)
		txHash := ""
		if len(hashes) > 0 {
			txHash = hashes[len(hashes)-1]
		}
		if err := f.attester.AttestBatch(ctx, subBatch, txHash); err != nil {
			metrics.AttestationsTotal.WithLabelValues("failed").Inc()
			f.logger.Warn("attestation failed", "batchId", subBatch.BatchID, "err", err)
		} else {
			metrics.AttestationsTotal.WithLabelValues("ok").Inc()
		}
	}
	return nil
}
