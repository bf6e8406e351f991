// Package inventory enumerates the token balances an account holds on the ledger.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	solana "github.com/gagliardetto/solana-go"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
)

// Inventory is the discovery capability. Backends differ in where balances come from.
type Inventory interface {
	Holdings(ctx context.Context, owner solana.PublicKey) ([]holding.Balance, error)
}

// Backend names accepted by config.
const (
	BackendRPC     = "rpc"
	BackendIndexer = "indexer"
)

// rawBalance is one token account worth of balance before aggregation.
type rawBalance struct {
	mint     string
	amount   string
	decimals int
}

// aggregate parses and sums raw balances per mint, dropping zero totals.
// Output is sorted by mint so discovery order is stable across backends.
func aggregate(raws []rawBalance) ([]holding.Balance, error) {
	byMint := make(map[string]holding.Balance, len(raws))
	for _, r := range raws {
		mint := strings.TrimSpace(r.mint)
		if mint == "" {
			return nil, failure.New(failure.Discovery, "token account missing mint")
		}
		if _, err := solana.PublicKeyFromBase58(mint); err != nil {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("invalid mint %q: %w", mint, err))
		}
		if r.decimals < 0 || r.decimals > 255 {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("mint %s: decimals %d out of range", mint, r.decimals))
		}
		units, err := strconv.ParseUint(strings.TrimSpace(r.amount), 10, 64)
		if err != nil {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("mint %s: parse amount %q: %w", mint, r.amount, err))
		}
		cur, seen := byMint[mint]
		if seen && int(cur.Decimals) != r.decimals {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("mint %s: conflicting decimals %d and %d", mint, cur.Decimals, r.decimals))
		}
		if cur.BaseUnits+units < cur.BaseUnits {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("mint %s: balance overflow", mint))
		}
		byMint[mint] = holding.Balance{AssetID: mint, BaseUnits: cur.BaseUnits + units, Decimals: uint8(r.decimals)}
	}
	out := make([]holding.Balance, 0, len(byMint))
	for _, b := range byMint {
		if b.BaseUnits == 0 {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetID < out[j].AssetID })
	return out, nil
}
