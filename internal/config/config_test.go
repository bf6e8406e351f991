package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "dustsweep-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Ledger.Commitment != "finalized" {
		t.Fatalf("expected finalized commitment, got %s", cfg.Ledger.Commitment)
	}
	if cfg.Inventory.Backend != "indexer" || cfg.Inventory.IndexerURL != "https://indexer.example.com" {
		t.Fatalf("unexpected inventory: %+v", cfg.Inventory)
	}
	if cfg.Pricing.Source != "dexscreener" || cfg.Pricing.DexScreener.DefaultChain != "solana" {
		t.Fatalf("unexpected pricing: %+v", cfg.Pricing)
	}
	if cfg.Pricing.CacheTTLSecs != 60 {
		t.Fatalf("unexpected cache ttl: %d", cfg.Pricing.CacheTTLSecs)
	}
	if cfg.Aggregator.SlippageBps != 100 || cfg.Aggregator.QuoteAttempts != 4 {
		t.Fatalf("unexpected aggregator: %+v", cfg.Aggregator)
	}
	if cfg.Aggregator.RequoteOnBuildFailure == nil || *cfg.Aggregator.RequoteOnBuildFailure {
		t.Fatalf("expected requote disabled")
	}
	if cfg.Aggregator.TargetMint != "So11111111111111111111111111111111111111112" {
		t.Fatalf("expected default target mint, got %s", cfg.Aggregator.TargetMint)
	}
	if cfg.Broadcast.SkipPreflight == nil || *cfg.Broadcast.SkipPreflight {
		t.Fatalf("expected preflight enabled")
	}
	if *cfg.Broadcast.MaxRetries != 2 {
		t.Fatalf("expected default node retries, got %d", *cfg.Broadcast.MaxRetries)
	}
	if *cfg.Broadcast.SubmitRetries != 0 {
		t.Fatalf("expected resubmission disabled, got %d", *cfg.Broadcast.SubmitRetries)
	}
	if cfg.Broadcast.PollIntervalMs != 500 {
		t.Fatalf("unexpected poll interval: %d", cfg.Broadcast.PollIntervalMs)
	}
	if cfg.Dust.ThresholdUSD != 2.5 || len(cfg.Dust.Exclude) != 1 {
		t.Fatalf("unexpected dust: %+v", cfg.Dust)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Dust.ThresholdUSD != 5 {
		t.Fatalf("expected threshold 5, got %.2f", cfg.Dust.ThresholdUSD)
	}
	if cfg.Aggregator.SlippageBps != 50 || cfg.Aggregator.QuoteAttempts != 3 {
		t.Fatalf("unexpected aggregator defaults: %+v", cfg.Aggregator)
	}
	if !*cfg.Aggregator.RequoteOnBuildFailure || !*cfg.Broadcast.SkipPreflight {
		t.Fatalf("expected requote and skip preflight on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Defaults()
	cfg.Dust.ThresholdUSD = 1
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Dust.ThresholdUSD != 1 {
		t.Fatalf("expected threshold 1, got %.2f", loaded.Dust.ThresholdUSD)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Inventory.Backend = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	cfg = Defaults()
	cfg.Inventory.Backend = "indexer"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for indexer without url")
	}
}

func TestValidateRejectsUnknownCurrency(t *testing.T) {
	cfg := Defaults()
	cfg.Pricing.Currency = "XYZ"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown currency")
	}
	cfg.Pricing.Currency = "EUR"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("EUR must validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
