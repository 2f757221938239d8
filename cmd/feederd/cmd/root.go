// Package cmd wires the feeder daemon: configuration, key loading, the RPC
// client and the cycle loop.
package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/paw-chain/oracle-feeder/pkg/aggregator"
	"github.com/paw-chain/oracle-feeder/pkg/attestation"
	"github.com/paw-chain/oracle-feeder/pkg/batch"
	"github.com/paw-chain/oracle-feeder/pkg/config"
	"github.com/paw-chain/oracle-feeder/pkg/feeder"
	"github.com/paw-chain/oracle-feeder/pkg/httpclient"
	"github.com/paw-chain/oracle-feeder/pkg/keys"
	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
	"github.com/paw-chain/oracle-feeder/pkg/pricecache"
	"github.com/paw-chain/oracle-feeder/pkg/sources"
	"github.com/paw-chain/oracle-feeder/pkg/submitter"
	"github.com/paw-chain/oracle-feeder/pkg/sweeper"
	"github.com/paw-chain/oracle-feeder/pkg/symbolmap"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// NewRootCmd builds the feederd command tree.
func NewRootCmd() *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		once        bool
	)

	rootCmd := &cobra.Command{
		Use:           "feederd",
		Short:         "Price oracle feeder daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return run(configPath, metricsAddr, once)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "path to the JSON configuration file")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus metrics (empty disables)")
	rootCmd.Flags().BoolVar(&once, "once", false, "run a single cycle and exit")

	rootCmd.AddCommand(newStatusCmd(&configPath))
	return rootCmd
}

func run(configPath, metricsAddr string, once bool) error {
	logger := log.NewLogger(os.Stderr)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("configuration loaded", "config", cfg.String())

	attesterKey, err := keys.FromWIF(cfg.BatchProcessing.TeeAccountPrivateKey)
	if err != nil {
		return sdkerrors.Wrapf(types.ErrCredentials, "attester key: %v", err)
	}
	feePayerKey, err := keys.FromWIF(cfg.BatchProcessing.MasterAccountPrivateKey)
	if err != nil {
		return sdkerrors.Wrapf(types.ErrCredentials, "fee-payer key: %v", err)
	}

	symbols := symbolmap.New(cfg.Symbols, cfg.SymbolMappings.Mappings)
	pool := httpclient.NewPool(httpclient.DefaultOptions(), logger)
	adapters := sources.NewRegistry(cfg.SourcesConfig(), symbols, pool, logger)
	if len(adapters) == 0 {
		return sdkerrors.Wrap(types.ErrConfig, "no enabled data source")
	}

	cache := pricecache.New(cfg.PriceCacheTTL(), cfg.SymbolsCacheTTL())
	cached := pricecache.WrapAll(adapters, cache)

	node := neorpc.New(cfg.BatchProcessing.RpcEndpoint, 30*time.Second, logger)

	sub, err := submitter.New(node, attesterKey, feePayerKey, submitter.Options{
		ContractScriptHash: cfg.BatchProcessing.ContractScriptHash,
		ConfirmPolls:       cfg.BatchProcessing.ConfirmPolls,
		ConfirmInterval:    time.Duration(cfg.BatchProcessing.ConfirmIntervalSeconds) * time.Second,
	}, logger)
	if err != nil {
		return err
	}

	swp := sweeper.New(node, sweeper.Options{
		Enabled:         cfg.BatchProcessing.CheckAndTransferTeeAssets,
		NativeAssetHash: cfg.BatchProcessing.NativeAssetHash,
		AttesterAddress: cfg.BatchProcessing.TeeAccountAddress,
		FeePayerAddress: cfg.BatchProcessing.MasterAccountAddress,
	}, logger)

	store, err := openAttestationStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	attester := attestation.NewAttester(attesterKey, store)

	f := feeder.New(
		cfg.Symbols,
		cached,
		aggregator.New(logger),
		batch.NewBuilder(cfg.BatchProcessing.MaxBatchSize),
		swp,
		sub,
		attester,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}
	go pruneAttestations(ctx, store, cfg.Attestation.RetentionDays, logger)

	if once {
		return f.RunCycle(ctx)
	}
	err = f.Run(ctx, cfg.CycleInterval())
	if sdkerrors.IsOf(err, types.ErrCancelled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func openAttestationStore(cfg *config.Config, logger log.Logger) (attestation.Store, error) {
	if cfg.Attestation.DatabaseURL == "" {
		logger.Info("no attestation database configured, using in-memory store")
		return attestation.NewMemoryStore(), nil
	}
	return attestation.NewPostgresStore(attestation.PostgresConfig{
		URL:            cfg.Attestation.DatabaseURL,
		MaxConnections: 5,
		MaxIdle:        2,
		ConnMaxLife:    time.Hour,
	})
}

func serveMetrics(addr string, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}

// pruneAttestations enforces the retention window once a day.
func pruneAttestations(ctx context.Context, store attestation.Store, days int, logger log.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOldAttestations(ctx, days)
			if err != nil {
				logger.Warn("attestation cleanup failed", "err", err)
				continue
			}
			if removed > 0 {
				logger.Info("attestations pruned", "removed", removed)
			}
		}
	}
}
