package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
)

// Indexer reads balances from a third-party indexing service instead of a node.
type Indexer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewIndexer builds an indexer-backed inventory.
func NewIndexer(baseURL, apiKey string) *Indexer {
	return &Indexer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type indexerBalances struct {
	Tokens *[]struct {
		Mint     string          `json:"mint"`
		Amount   json.RawMessage `json:"amount"`
		Decimals *int            `json:"decimals"`
	} `json:"tokens"`
}

// Holdings implements Inventory.
func (ix *Indexer) Holdings(ctx context.Context, owner solana.PublicKey) ([]holding.Balance, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/balances", ix.baseURL, owner)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, failure.Wrap(failure.Discovery, fmt.Errorf("create request: %w", err))
	}
	if ix.apiKey != "" {
		q := req.URL.Query()
		q.Set("api-key", ix.apiKey)
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("User-Agent", "dustsweep-go/1.0 (inventory)")
	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Discovery, fmt.Errorf("http do: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure.Wrap(failure.Discovery, fmt.Errorf("indexer status %d", resp.StatusCode))
	}
	var payload indexerBalances
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, failure.Wrap(failure.Discovery, fmt.Errorf("decode response: %w", err))
	}
	if payload.Tokens == nil {
		return nil, failure.New(failure.Discovery, "indexer response missing tokens")
	}
	raws := make([]rawBalance, 0, len(*payload.Tokens))
	for _, tok := range *payload.Tokens {
		if tok.Decimals == nil {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("mint %q missing decimals", tok.Mint))
		}
		raws = append(raws, rawBalance{mint: tok.Mint, amount: unquote(tok.Amount), decimals: *tok.Decimals})
	}
	return aggregate(raws)
}

// unquote accepts amounts encoded either as JSON strings or bare integers.
func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
