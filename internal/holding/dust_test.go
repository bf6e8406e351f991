package holding

import (
	"testing"

	"github.com/shopspring/decimal"
)

func holdingWorth(id, value string) Holding {
	return Priced(Balance{AssetID: id, BaseUnits: 1, Decimals: 0}, id, id, "", decimal.RequireFromString(value))
}

func ids(hs []Holding) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.AssetID
	}
	return out
}

func TestDustFilterBounds(t *testing.T) {
	filter := DustFilter{Threshold: decimal.NewFromInt(5)}
	in := []Holding{
		holdingWorth("zero", "0"),
		holdingWorth("tiny", "0.0001"),
		holdingWorth("below", "4.999999"),
		holdingWorth("at", "5"),
		holdingWorth("above", "12"),
		holdingWorth("mid", "3"),
	}
	got := ids(filter.Apply(in))
	want := []string{"tiny", "below", "mid"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDustFilterIdempotent(t *testing.T) {
	filter := DustFilter{Threshold: decimal.NewFromInt(5)}
	in := []Holding{holdingWorth("a", "1"), holdingWorth("b", "50"), holdingWorth("c", "2")}
	once := filter.Apply(in)
	twice := filter.Apply(once)
	if len(once) != len(twice) {
		t.Fatalf("not idempotent: %v vs %v", ids(once), ids(twice))
	}
	for i := range once {
		if once[i].AssetID != twice[i].AssetID {
			t.Fatalf("not idempotent: %v vs %v", ids(once), ids(twice))
		}
	}
}

func TestDustFilterDefaultThresholdAndExclude(t *testing.T) {
	filter := DustFilter{Exclude: []string{"wsol"}}
	got := ids(filter.Apply([]Holding{holdingWorth("wsol", "1"), holdingWorth("bonk", "4"), holdingWorth("jup", "6")}))
	if len(got) != 1 || got[0] != "bonk" {
		t.Fatalf("expected [bonk], got %v", got)
	}
}
