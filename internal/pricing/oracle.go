// Package pricing enriches raw balances with reference-currency prices and display metadata.
package pricing

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
)

// Listing is what a price source knows about one asset.
type Listing struct {
	AssetID string          `json:"asset_id"`
	Name    string          `json:"name"`
	Symbol  string          `json:"symbol"`
	IconRef string          `json:"icon_ref"`
	Price   decimal.Decimal `json:"price"`
}

// Source resolves listings for a set of asset ids. Ids it does not know are simply absent.
type Source interface {
	Listings(ctx context.Context, ids []string) (map[string]Listing, error)
}

// Oracle joins balances with listings from a Source.
type Oracle struct {
	source Source
	log    zerolog.Logger
}

// NewOracle wraps a Source.
func NewOracle(source Source, log zerolog.Logger) *Oracle {
	return &Oracle{source: source, log: log}
}

// Enrich prices every balance. Unlisted assets keep zero price and placeholder metadata.
func (o *Oracle) Enrich(ctx context.Context, balances []holding.Balance) ([]holding.Holding, error) {
	if len(balances) == 0 {
		return nil, nil
	}
	ids := lo.Map(balances, func(b holding.Balance, _ int) string { return b.AssetID })
	listings, err := o.source.Listings(ctx, ids)
	if err != nil {
		if failure.KindOf(err) == "" {
			err = failure.Wrap(failure.Pricing, err)
		}
		return nil, err
	}
	out := make([]holding.Holding, 0, len(balances))
	unknown := 0
	for _, b := range balances {
		l, ok := listings[b.AssetID]
		if !ok {
			unknown++
			out = append(out, holding.Unpriced(b))
			continue
		}
		out = append(out, holding.Priced(b, l.Name, l.Symbol, l.IconRef, l.Price))
	}
	o.log.Debug().Int("assets", len(out)).Int("unlisted", unknown).Msg("priced holdings")
	return out, nil
}
