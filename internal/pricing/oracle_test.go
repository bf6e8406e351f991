package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
)

type staticSource struct {
	listings map[string]Listing
	err      error
	asked    [][]string
}

func (s *staticSource) Listings(_ context.Context, ids []string) (map[string]Listing, error) {
	s.asked = append(s.asked, append([]string(nil), ids...))
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]Listing{}
	for _, id := range ids {
		if l, ok := s.listings[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func TestEnrichJoinsAndFallsBack(t *testing.T) {
	src := &staticSource{listings: map[string]Listing{
		"X": {AssetID: "X", Name: "Token X", Symbol: "X", IconRef: "x.png", Price: decimal.RequireFromString("1.5")},
	}}
	oracle := NewOracle(src, zerolog.Nop())
	got, err := oracle.Enrich(context.Background(), []holding.Balance{
		{AssetID: "X", BaseUnits: 2_000_000, Decimals: 6},
		{AssetID: "Q", BaseUnits: 10, Decimals: 0},
	})
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unlisted assets must be kept, got %d holdings", len(got))
	}
	if got[0].DisplayName != "Token X" || !got[0].TotalValue().Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected priced holding %+v", got[0])
	}
	if got[1].DisplayName != holding.UnknownName || !got[1].TotalValue().IsZero() {
		t.Fatalf("unexpected fallback holding %+v", got[1])
	}
}

func TestEnrichSourceErrorIsPricing(t *testing.T) {
	oracle := NewOracle(&staticSource{err: errors.New("dial tcp: timeout")}, zerolog.Nop())
	_, err := oracle.Enrich(context.Background(), []holding.Balance{{AssetID: "X", BaseUnits: 1}})
	if !failure.Is(err, failure.Pricing) {
		t.Fatalf("expected pricing failure, got %v", err)
	}
	if err.Error() != "dial tcp: timeout" {
		t.Fatalf("expected verbatim message, got %q", err.Error())
	}
}

func TestEnrichEmpty(t *testing.T) {
	src := &staticSource{}
	got, err := NewOracle(src, zerolog.Nop()).Enrich(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
	if len(src.asked) != 0 {
		t.Fatalf("source should not be called for empty input")
	}
}
