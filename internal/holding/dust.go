package holding

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DefaultThresholdUSD is the upper bound (exclusive) on the value of a dust holding.
var DefaultThresholdUSD = decimal.NewFromInt(5)

// DustFilter selects holdings whose value is positive but below Threshold.
type DustFilter struct {
	Threshold decimal.Decimal
	// Exclude lists asset ids that are never dust, e.g. the conversion target.
	Exclude []string
}

// Apply returns the order-preserving subset with 0 < TotalValue < Threshold.
func (f DustFilter) Apply(holdings []Holding) []Holding {
	threshold := f.Threshold
	if !threshold.IsPositive() {
		threshold = DefaultThresholdUSD
	}
	excluded := lo.SliceToMap(f.Exclude, func(id string) (string, struct{}) { return id, struct{}{} })
	return lo.Filter(holdings, func(h Holding, _ int) bool {
		if _, skip := excluded[h.AssetID]; skip {
			return false
		}
		v := h.TotalValue()
		return v.IsPositive() && v.LessThan(threshold)
	})
}
