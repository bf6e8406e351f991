// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/Rhymond/go-money"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, metrics and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	// EventsPath, when set, receives run progress events as JSON lines.
	EventsPath string `yaml:"events_path"`
}

// Inventory selects how balances are discovered.
type Inventory struct {
	Backend string `yaml:"backend"` // rpc|indexer
	// TokenPrograms overrides the token programs queried by the rpc backend.
	TokenPrograms []string `yaml:"token_programs"`
	IndexerURL    string   `yaml:"indexer_url"`
	IndexerAPIKey string   `yaml:"indexer_api_key"`
}

// Pricing selects the price source and its cache.
type Pricing struct {
	Source       string      `yaml:"source"` // catalog|dexscreener
	CatalogURL   string      `yaml:"catalog_url"`
	DexScreener  DexScreener `yaml:"dexscreener"`
	CacheTTLSecs int         `yaml:"cache_ttl_secs"`
	RedisAddr    string      `yaml:"redis_addr"`
	Currency     string      `yaml:"currency"`
}

// DexScreener configures per-mint price lookups.
type DexScreener struct {
	BaseURL      string `yaml:"base_url"`
	DefaultChain string `yaml:"default_chain"`
}

// Dust bounds what counts as a dust holding.
type Dust struct {
	ThresholdUSD float64  `yaml:"threshold_usd"`
	Exclude      []string `yaml:"exclude"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Ledger     Ledger     `yaml:"ledger"`
	Inventory  Inventory  `yaml:"inventory"`
	Pricing    Pricing    `yaml:"pricing"`
	Aggregator Aggregator `yaml:"aggregator"`
	Broadcast  Broadcast  `yaml:"broadcast"`
	Dust       Dust       `yaml:"dust"`
	Wallet     Wallet     `yaml:"wallet"`
}

// Defaults returns a Config usable against mainnet without a file.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "dustsweep"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Ledger.RpcURL == "" {
		c.Ledger.RpcURL = "https://api.mainnet-beta.solana.com"
	}
	if c.Ledger.Commitment == "" {
		c.Ledger.Commitment = "confirmed"
	}
	if c.Inventory.Backend == "" {
		c.Inventory.Backend = "rpc"
	}
	if c.Pricing.Source == "" {
		c.Pricing.Source = "catalog"
	}
	if c.Pricing.CatalogURL == "" {
		c.Pricing.CatalogURL = "https://token.jup.ag/all"
	}
	if c.Pricing.DexScreener.BaseURL == "" {
		c.Pricing.DexScreener.BaseURL = "https://api.dexscreener.com"
	}
	if c.Pricing.DexScreener.DefaultChain == "" {
		c.Pricing.DexScreener.DefaultChain = "solana"
	}
	if c.Pricing.CacheTTLSecs == 0 {
		c.Pricing.CacheTTLSecs = 300
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = "USD"
	}
	if c.Aggregator.BaseURL == "" {
		c.Aggregator.BaseURL = "https://quote-api.jup.ag"
	}
	if c.Aggregator.TargetMint == "" {
		c.Aggregator.TargetMint = "So11111111111111111111111111111111111111112"
	}
	if c.Aggregator.SlippageBps == 0 {
		c.Aggregator.SlippageBps = 50
	}
	if c.Aggregator.QuoteAttempts == 0 {
		c.Aggregator.QuoteAttempts = 3
	}
	if c.Aggregator.QuoteRetryDelayMs == 0 {
		c.Aggregator.QuoteRetryDelayMs = 500
	}
	if c.Aggregator.RequoteOnBuildFailure == nil {
		on := true
		c.Aggregator.RequoteOnBuildFailure = &on
	}
	if c.Broadcast.SkipPreflight == nil {
		on := true
		c.Broadcast.SkipPreflight = &on
	}
	if c.Broadcast.MaxRetries == nil {
		n := uint(2)
		c.Broadcast.MaxRetries = &n
	}
	if c.Broadcast.SubmitRetries == nil {
		n := 2
		c.Broadcast.SubmitRetries = &n
	}
	if c.Broadcast.PollIntervalMs == 0 {
		c.Broadcast.PollIntervalMs = 2000
	}
	if c.Dust.ThresholdUSD == 0 {
		c.Dust.ThresholdUSD = 5
	}
}

// Load reads a YAML file from disk and hydrates a Config struct, filling unset fields with defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Inventory.Backend {
	case "rpc":
	case "indexer":
		if c.Inventory.IndexerURL == "" {
			return fmt.Errorf("inventory.indexer_url is required for the indexer backend")
		}
	default:
		return fmt.Errorf("unknown inventory backend %q", c.Inventory.Backend)
	}
	switch c.Pricing.Source {
	case "catalog", "dexscreener":
	default:
		return fmt.Errorf("unknown pricing source %q", c.Pricing.Source)
	}
	switch c.Ledger.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("unknown commitment %q", c.Ledger.Commitment)
	}
	if money.GetCurrency(c.Pricing.Currency) == nil {
		return fmt.Errorf("unknown pricing.currency %q", c.Pricing.Currency)
	}
	if n := c.Broadcast.SubmitRetries; n != nil && *n < 0 {
		return fmt.Errorf("broadcast.submit_retries must not be negative")
	}
	if c.Dust.ThresholdUSD < 0 {
		return fmt.Errorf("dust.threshold_usd must not be negative")
	}
	if c.Aggregator.SlippageBps < 0 || c.Aggregator.SlippageBps > 10_000 {
		return fmt.Errorf("aggregator.slippage_bps out of range: %d", c.Aggregator.SlippageBps)
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
