package inventory

import (
	"testing"

	"dustsweep-go/internal/failure"
)

const (
	mintA = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintB = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func TestAggregateSumsAndDropsZero(t *testing.T) {
	got, err := aggregate([]rawBalance{
		{mint: mintB, amount: "100", decimals: 5},
		{mint: mintA, amount: "0", decimals: 6},
		{mint: mintB, amount: "50", decimals: 5},
	})
	if err != nil {
		t.Fatalf("aggregate returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one balance, got %+v", got)
	}
	if got[0].AssetID != mintB || got[0].BaseUnits != 150 || got[0].Decimals != 5 {
		t.Fatalf("unexpected balance %+v", got[0])
	}
}

func TestAggregateSortsByMint(t *testing.T) {
	got, err := aggregate([]rawBalance{
		{mint: mintA, amount: "1", decimals: 6},
		{mint: mintB, amount: "1", decimals: 5},
	})
	if err != nil {
		t.Fatalf("aggregate returned error: %v", err)
	}
	if got[0].AssetID != mintB || got[1].AssetID != mintA {
		t.Fatalf("expected sorted output, got %+v", got)
	}
}

func TestAggregateRejectsMalformed(t *testing.T) {
	cases := map[string]rawBalance{
		"missing mint":   {mint: "", amount: "1", decimals: 6},
		"bad mint":       {mint: "not-base58!", amount: "1", decimals: 6},
		"bad amount":     {mint: mintA, amount: "1.5", decimals: 6},
		"bad decimals":   {mint: mintA, amount: "1", decimals: 300},
		"negative digit": {mint: mintA, amount: "-1", decimals: 6},
	}
	for name, raw := range cases {
		if _, err := aggregate([]rawBalance{raw}); !failure.Is(err, failure.Discovery) {
			t.Fatalf("%s: expected discovery failure, got %v", name, err)
		}
	}
}

func TestAggregateConflictingDecimals(t *testing.T) {
	_, err := aggregate([]rawBalance{
		{mint: mintA, amount: "1", decimals: 6},
		{mint: mintA, amount: "1", decimals: 9},
	})
	if !failure.Is(err, failure.Discovery) {
		t.Fatalf("expected discovery failure, got %v", err)
	}
}
