package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dustsweep-go/internal/failure"
)

// DefaultCatalogURL is the bulk token list with prices.
const DefaultCatalogURL = "https://token.jup.ag/all"

// Catalog fetches one bulk token list and answers every lookup from it.
type Catalog struct {
	url    string
	client *http.Client
}

// NewCatalog builds a bulk catalog source.
func NewCatalog(url string) *Catalog {
	if url == "" {
		url = DefaultCatalogURL
	}
	return &Catalog{url: url, client: &http.Client{Timeout: 15 * time.Second}}
}

type catalogEntry struct {
	Address *string          `json:"address"`
	Name    string           `json:"name"`
	Symbol  string           `json:"symbol"`
	LogoURI string           `json:"logoURI"`
	Price   *decimal.Decimal `json:"price"`
}

// Listings implements Source. The whole catalog is fetched; ids narrows the result.
func (c *Catalog) Listings(ctx context.Context, ids []string) (map[string]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", "dustsweep-go/1.0 (pricing)")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("http do: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("catalog status %d", resp.StatusCode))
	}
	var entries []catalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("decode catalog: %w", err))
	}
	return filterCatalog(entries, ids)
}

func filterCatalog(entries []catalogEntry, ids []string) (map[string]Listing, error) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[string]Listing, len(ids))
	for i, e := range entries {
		if e.Address == nil || strings.TrimSpace(*e.Address) == "" {
			return nil, failure.Wrap(failure.Pricing, fmt.Errorf("catalog entry %d missing address", i))
		}
		addr := strings.TrimSpace(*e.Address)
		if _, ok := want[addr]; !ok {
			continue
		}
		price := decimal.Zero
		if e.Price != nil {
			price = *e.Price
		}
		if price.IsNegative() {
			return nil, failure.Wrap(failure.Pricing, fmt.Errorf("catalog entry %s has negative price %s", addr, price))
		}
		out[addr] = Listing{AssetID: addr, Name: e.Name, Symbol: e.Symbol, IconRef: e.LogoURI, Price: price}
	}
	return out, nil
}
