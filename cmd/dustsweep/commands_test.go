package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"

	"dustsweep-go/internal/config"
	"dustsweep-go/internal/execution"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "http://localhost:8899")
	t.Setenv("SOLANA_COMMITMENT", "finalized")
	t.Setenv("DUST_THRESHOLD_USD", "1.25")
	cfg := config.Defaults()
	if err := applyEnv(cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Ledger.RpcURL != "http://localhost:8899" || cfg.Ledger.Commitment != "finalized" {
		t.Fatalf("unexpected ledger config %+v", cfg.Ledger)
	}
	if cfg.Dust.ThresholdUSD != 1.25 {
		t.Fatalf("expected threshold 1.25, got %.2f", cfg.Dust.ThresholdUSD)
	}

	t.Setenv("DUST_THRESHOLD_USD", "cheap")
	if err := applyEnv(config.Defaults()); err == nil {
		t.Fatalf("expected error for bad threshold")
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, execution.Report{
		RunID: "run-1",
		State: execution.Aborted,
		Legs: []execution.LegResult{
			{AssetID: "A", Name: "Alpha", Status: execution.LegSucceeded, Signature: solana.Signature{1}},
			{AssetID: "B", Name: "Beta", Status: execution.LegFailed, Reason: "no route"},
			{AssetID: "C", Name: "Gamma", Status: execution.LegPending},
		},
		Succeeded: []string{"A"},
		Err:       errors.New("no route"),
	})
	out := buf.String()
	for _, want := range []string{"https://solscan.io/tx/", "no route", "pending", "deselect on the next run: A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
