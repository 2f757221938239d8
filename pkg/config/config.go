// Package config loads the feeder configuration from a JSON document with
// environment-variable overrides. The environment always wins over the file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	sdkerrors "cosmossdk.io/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/paw-chain/oracle-feeder/pkg/sources"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

// SourceSection is the per-exchange block of the configuration file.
type SourceSection struct {
	BaseURL        string `mapstructure:"BaseUrl"`
	TickerPath     string `mapstructure:"TickerPath"`
	BatchPath      string `mapstructure:"BatchPath"`
	SupportedPath  string `mapstructure:"SupportedPath"`
	TimeoutSeconds int    `mapstructure:"TimeoutSeconds"`
	APIKey         string `mapstructure:"ApiKey"`
	APISecret      string `mapstructure:"ApiSecret"`
	Passphrase     string `mapstructure:"Passphrase"`
}

// SymbolMappings is the canonical-to-source translation table.
type SymbolMappings struct {
	Mappings map[string]map[string]string `mapstructure:"Mappings"`
}

// BatchProcessing holds the chain-facing settings.
type BatchProcessing struct {
	RpcEndpoint              string `mapstructure:"RpcEndpoint"`
	ContractScriptHash       string `mapstructure:"ContractScriptHash"`
	NativeAssetHash          string `mapstructure:"NativeAssetHash"`
	TeeAccountAddress        string `mapstructure:"TeeAccountAddress"`
	TeeAccountPrivateKey     string `mapstructure:"TeeAccountPrivateKey"`
	MasterAccountAddress     string `mapstructure:"MasterAccountAddress"`
	MasterAccountPrivateKey  string `mapstructure:"MasterAccountPrivateKey"`
	MaxBatchSize             int    `mapstructure:"MaxBatchSize"`
	CheckAndTransferTeeAssets bool  `mapstructure:"CheckAndTransferTeeAssets"`
	ConfirmPolls             int    `mapstructure:"ConfirmPolls"`
	ConfirmIntervalSeconds   int    `mapstructure:"ConfirmIntervalSeconds"`
}

// Attestation holds the optional attestation database settings.
type Attestation struct {
	DatabaseURL   string `mapstructure:"DatabaseUrl"`
	RetentionDays int    `mapstructure:"RetentionDays"`
}

// Config is the root configuration document.
type Config struct {
	Symbols        []string       `mapstructure:"Symbols"`
	SymbolMappings SymbolMappings `mapstructure:"SymbolMappings"`

	Binance       SourceSection `mapstructure:"Binance"`
	OKEx          SourceSection `mapstructure:"OKEx"`
	Coinbase      SourceSection `mapstructure:"Coinbase"`
	CoinMarketCap SourceSection `mapstructure:"CoinMarketCap"`
	CoinGecko     SourceSection `mapstructure:"CoinGecko"`
	Kraken        SourceSection `mapstructure:"Kraken"`

	BatchProcessing BatchProcessing `mapstructure:"BatchProcessing"`
	Attestation     Attestation     `mapstructure:"Attestation"`

	CycleIntervalSeconds   int `mapstructure:"CycleIntervalSeconds"`
	PriceCacheTTLSeconds   int `mapstructure:"PriceCacheTTLSeconds"`
	SymbolsCacheTTLSeconds int `mapstructure:"SymbolsCacheTTLSeconds"`

	Environment string `mapstructure:"Environment"`
}

// envOverrides maps recognised environment variables onto config paths.
var envOverrides = map[string]string{
	"NEO_RPC_ENDPOINT":              "BatchProcessing.RpcEndpoint",
	"CONTRACT_SCRIPT_HASH":          "BatchProcessing.ContractScriptHash",
	"NATIVE_ASSET_HASH":             "BatchProcessing.NativeAssetHash",
	"TEE_ACCOUNT_ADDRESS":           "BatchProcessing.TeeAccountAddress",
	"TEE_ACCOUNT_PRIVATE_KEY":       "BatchProcessing.TeeAccountPrivateKey",
	"MASTER_ACCOUNT_ADDRESS":        "BatchProcessing.MasterAccountAddress",
	"MASTER_ACCOUNT_PRIVATE_KEY":    "BatchProcessing.MasterAccountPrivateKey",
	"MAX_BATCH_SIZE":                "BatchProcessing.MaxBatchSize",
	"CHECK_AND_TRANSFER_TEE_ASSETS": "BatchProcessing.CheckAndTransferTeeAssets",
	"COINMARKETCAP_API_KEY":         "CoinMarketCap.ApiKey",
	"COINGECKO_API_KEY":             "CoinGecko.ApiKey",
	"KRAKEN_API_KEY":                "Kraken.ApiKey",
	"KRAKEN_API_SECRET":             "Kraken.ApiSecret",
	"ATTESTATION_DATABASE_URL":      "Attestation.DatabaseUrl",
	"ENVIRONMENT":                   "Environment",
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("BatchProcessing.MaxBatchSize", 50)
	v.SetDefault("BatchProcessing.ConfirmPolls", 30)
	v.SetDefault("BatchProcessing.ConfirmIntervalSeconds", 2)
	v.SetDefault("Attestation.RetentionDays", 7)
	v.SetDefault("CycleIntervalSeconds", 60)
	v.SetDefault("PriceCacheTTLSeconds", 60)
	v.SetDefault("SymbolsCacheTTLSeconds", 3600)
	v.SetDefault("Environment", "development")

	if err := v.ReadInConfig(); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrConfig, "read %s: %v", path, err)
	}

	for env, key := range envOverrides {
		if err := v.BindEnv(key, env); err != nil {
			return nil, sdkerrors.Wrapf(types.ErrConfig, "bind %s: %v", env, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sdkerrors.Wrapf(types.ErrConfig, "decode: %v", err)
	}
	// SYMBOLS is a comma-separated list, which viper cannot bind as a scalar.
	if symbols := os.Getenv("SYMBOLS"); symbols != "" {
		cfg.Symbols = splitCSV(symbols)
	}
	return &cfg, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the startup invariants. Failures here are fatal.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return sdkerrors.Wrap(types.ErrConfig, "no symbols configured")
	}
	for _, symbol := range c.Symbols {
		if !types.IsCanonicalSymbol(symbol) {
			return sdkerrors.Wrapf(types.ErrConfig, "symbol %q is not canonical", symbol)
		}
	}

	if c.EnabledSourceCount() == 0 {
		return sdkerrors.Wrap(types.ErrConfig, "no enabled data source")
	}

	bp := c.BatchProcessing
	if bp.RpcEndpoint == "" {
		return sdkerrors.Wrap(types.ErrConfig, "RpcEndpoint is required")
	}
	if err := c.validateEndpoint(bp.RpcEndpoint); err != nil {
		return err
	}
	if !isScriptHash(bp.ContractScriptHash) {
		return sdkerrors.Wrapf(types.ErrConfig, "ContractScriptHash %q must be 0x-prefixed 40 hex chars", bp.ContractScriptHash)
	}
	if bp.NativeAssetHash != "" && !isScriptHash(bp.NativeAssetHash) {
		return sdkerrors.Wrapf(types.ErrConfig, "NativeAssetHash %q must be 0x-prefixed 40 hex chars", bp.NativeAssetHash)
	}
	if !isAddress(bp.TeeAccountAddress) {
		return sdkerrors.Wrapf(types.ErrConfig, "TeeAccountAddress %q must start with N", bp.TeeAccountAddress)
	}
	if !isAddress(bp.MasterAccountAddress) {
		return sdkerrors.Wrapf(types.ErrConfig, "MasterAccountAddress %q must start with N", bp.MasterAccountAddress)
	}
	if len(bp.TeeAccountPrivateKey) < 52 {
		return sdkerrors.Wrap(types.ErrConfig, "TeeAccountPrivateKey must be a WIF of at least 52 chars")
	}
	if len(bp.MasterAccountPrivateKey) < 52 {
		return sdkerrors.Wrap(types.ErrConfig, "MasterAccountPrivateKey must be a WIF of at least 52 chars")
	}
	if bp.MaxBatchSize < 1 || bp.MaxBatchSize > 100 {
		return sdkerrors.Wrapf(types.ErrConfig, "MaxBatchSize %d out of range 1..100", bp.MaxBatchSize)
	}
	return nil
}

// validateEndpoint enforces HTTPS for production endpoints; localhost is
// exempt for development.
func (c *Config) validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return sdkerrors.Wrapf(types.ErrConfig, "RpcEndpoint %q: %v", endpoint, err)
	}
	if strings.EqualFold(c.Environment, "production") && u.Scheme != "https" && !isLocalhost(u.Hostname()) {
		return sdkerrors.Wrapf(types.ErrConfig, "production RpcEndpoint %q must use https", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return sdkerrors.Wrapf(types.ErrConfig, "RpcEndpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	return nil
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func isScriptHash(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func isAddress(s string) bool {
	return len(s) >= 34 && strings.HasPrefix(s, "N")
}

// EnabledSourceCount counts the sources with enough configuration to run.
func (c *Config) EnabledSourceCount() int {
	count := 0
	for _, section := range []SourceSection{c.Binance, c.OKEx, c.Coinbase, c.CoinGecko, c.Kraken} {
		if section.BaseURL != "" {
			count++
		}
	}
	if c.CoinMarketCap.BaseURL != "" && c.CoinMarketCap.APIKey != "" {
		count++
	}
	return count
}

// SourcesConfig converts the per-exchange sections to the adapter form.
func (c *Config) SourcesConfig() sources.Config {
	return sources.Config{
		Binance:       toSourceConfig(c.Binance),
		OKEx:          toSourceConfig(c.OKEx),
		Coinbase:      toSourceConfig(c.Coinbase),
		CoinMarketCap: toSourceConfig(c.CoinMarketCap),
		CoinGecko:     toSourceConfig(c.CoinGecko),
		Kraken:        toSourceConfig(c.Kraken),
	}
}

func toSourceConfig(s SourceSection) sources.SourceConfig {
	return sources.SourceConfig{
		BaseURL:        s.BaseURL,
		TickerPath:     s.TickerPath,
		BatchPath:      s.BatchPath,
		SupportedPath:  s.SupportedPath,
		TimeoutSeconds: s.TimeoutSeconds,
		APIKey:         s.APIKey,
		APISecret:      s.APISecret,
		Passphrase:     s.Passphrase,
	}
}

// CycleInterval returns the cycle cadence as a duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(cast.ToInt64(c.CycleIntervalSeconds)) * time.Second
}

// PriceCacheTTL returns the short cache TTL.
func (c *Config) PriceCacheTTL() time.Duration {
	return time.Duration(c.PriceCacheTTLSeconds) * time.Second
}

// SymbolsCacheTTL returns the long cache TTL.
func (c *Config) SymbolsCacheTTL() time.Duration {
	return time.Duration(c.SymbolsCacheTTLSeconds) * time.Second
}

// String renders a redacted summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config[symbols=%d, sources=%d, contract=%s, maxBatch=%d]",
		len(c.Symbols), c.EnabledSourceCount(),
		c.BatchProcessing.ContractScriptHash, c.BatchProcessing.MaxBatchSize)
}
