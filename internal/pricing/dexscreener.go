package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"dustsweep-go/internal/failure"
)

const (
	defaultDexScreenerBaseURL = "https://api.dexscreener.com"
	dexScreenerBatchSize      = 30
)

// DexScreener prices each mint from its most liquid pair on Dexscreener.
type DexScreener struct {
	baseURL string
	chain   string
	client  *http.Client
}

// NewDexScreener builds a per-mint price source for the given chain.
func NewDexScreener(baseURL, chain string) *DexScreener {
	if baseURL == "" {
		baseURL = defaultDexScreenerBaseURL
	}
	if chain == "" {
		chain = "solana"
	}
	return &DexScreener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		chain:   strings.ToLower(chain),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type dexscreenerPair struct {
	ChainID     string               `json:"chainId"`
	PairAddress string               `json:"pairAddress"`
	BaseToken   dexscreenerToken     `json:"baseToken"`
	QuoteToken  dexscreenerToken     `json:"quoteToken"`
	PriceUsd    string               `json:"priceUsd"`
	Liquidity   dexscreenerLiquidity `json:"liquidity"`
	Info        *struct {
		ImageURL string `json:"imageUrl"`
	} `json:"info"`
}

type dexscreenerToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type dexscreenerLiquidity struct {
	USD float64 `json:"usd"`
}

// Listings implements Source.
func (d *DexScreener) Listings(ctx context.Context, ids []string) (map[string]Listing, error) {
	out := make(map[string]Listing, len(ids))
	for _, batch := range lo.Chunk(lo.Uniq(ids), dexScreenerBatchSize) {
		pairs, err := d.fetch(ctx, batch)
		if err != nil {
			return nil, err
		}
		best, err := bestPairs(pairs, batch)
		if err != nil {
			return nil, err
		}
		for id, l := range best {
			out[id] = l
		}
	}
	return out, nil
}

func (d *DexScreener) fetch(ctx context.Context, mints []string) ([]dexscreenerPair, error) {
	url := fmt.Sprintf("%s/tokens/v1/%s/%s", d.baseURL, d.chain, strings.Join(mints, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", "dustsweep-go/1.0 (pricing)")
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("http do: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("dexscreener status %d", resp.StatusCode))
	}
	var pairs []dexscreenerPair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, failure.Wrap(failure.Pricing, fmt.Errorf("decode response: %w", err))
	}
	return pairs, nil
}

// bestPairs keeps, per requested mint, the most liquid pair quoting it as base token.
func bestPairs(pairs []dexscreenerPair, mints []string) (map[string]Listing, error) {
	wanted := lo.SliceToMap(mints, func(m string) (string, struct{}) { return m, struct{}{} })
	liquidity := make(map[string]float64, len(mints))
	out := make(map[string]Listing, len(mints))
	for _, pair := range pairs {
		mint := pair.BaseToken.Address
		if _, ok := wanted[mint]; !ok {
			continue
		}
		price, err := parseDexScreenerPrice(pair)
		if err != nil {
			return nil, err
		}
		if prev, seen := liquidity[mint]; seen && prev >= pair.Liquidity.USD {
			continue
		}
		liquidity[mint] = pair.Liquidity.USD
		icon := ""
		if pair.Info != nil {
			icon = pair.Info.ImageURL
		}
		out[mint] = Listing{
			AssetID: mint,
			Name:    pair.BaseToken.Name,
			Symbol:  pair.BaseToken.Symbol,
			IconRef: icon,
			Price:   price,
		}
	}
	return out, nil
}

func parseDexScreenerPrice(pair dexscreenerPair) (decimal.Decimal, error) {
	if strings.TrimSpace(pair.PriceUsd) == "" {
		return decimal.Zero, nil
	}
	px, err := decimal.NewFromString(pair.PriceUsd)
	if err != nil {
		return decimal.Zero, failure.Wrap(failure.Pricing, fmt.Errorf("pair %s: parse priceUsd %q: %w", pair.PairAddress, pair.PriceUsd, err))
	}
	if px.IsNegative() {
		return decimal.Zero, failure.Wrap(failure.Pricing, fmt.Errorf("pair %s: negative priceUsd %s", pair.PairAddress, px))
	}
	return px, nil
}
