// Package holding models discovered token balances, their valuation, and the user's selection of dust to sweep.
package holding

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Placeholder metadata for assets the price source does not list.
const (
	UnknownName   = "Unknown Token"
	UnknownSymbol = "???"
	UnknownIcon   = "/default-token.png"
)

// Balance is a raw ledger balance for one mint, before pricing.
type Balance struct {
	AssetID   string
	BaseUnits uint64
	Decimals  uint8
}

// Amount converts base units into the display amount using the mint's decimals.
func (b Balance) Amount() decimal.Decimal {
	return decimal.NewFromUint64(b.BaseUnits).Shift(-int32(b.Decimals))
}

// Holding is a priced balance. It is immutable once produced by the oracle.
type Holding struct {
	AssetID     string
	DisplayName string
	Symbol      string
	IconRef     string
	Amount      decimal.Decimal
	BaseUnits   uint64
	Decimals    uint8
	UnitPrice   decimal.Decimal
}

// Priced builds a Holding from a balance and listing metadata.
// Negative prices are clamped to zero.
func Priced(b Balance, name, symbol, icon string, unitPrice decimal.Decimal) Holding {
	if unitPrice.IsNegative() {
		unitPrice = decimal.Zero
	}
	if strings.TrimSpace(name) == "" {
		name = UnknownName
	}
	if strings.TrimSpace(symbol) == "" {
		symbol = UnknownSymbol
	}
	if strings.TrimSpace(icon) == "" {
		icon = UnknownIcon
	}
	return Holding{
		AssetID:     b.AssetID,
		DisplayName: name,
		Symbol:      symbol,
		IconRef:     icon,
		Amount:      b.Amount(),
		BaseUnits:   b.BaseUnits,
		Decimals:    b.Decimals,
		UnitPrice:   unitPrice,
	}
}

// Unpriced builds the fallback Holding for an asset absent from the price source.
func Unpriced(b Balance) Holding {
	return Priced(b, UnknownName, UnknownSymbol, UnknownIcon, decimal.Zero)
}

// TotalValue is always derived from Amount and UnitPrice.
func (h Holding) TotalValue() decimal.Decimal {
	return h.Amount.Mul(h.UnitPrice)
}

// DisplayValue renders TotalValue in the given ISO currency, e.g. "$3.00".
func (h Holding) DisplayValue(currency string) string {
	if currency == "" {
		currency = money.USD
	}
	return money.NewFromFloat(h.TotalValue().InexactFloat64(), currency).Display()
}
