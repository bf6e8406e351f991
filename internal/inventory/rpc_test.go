package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"dustsweep-go/internal/failure"
)

type fakeReader struct {
	byProgram map[string]string
	err       error
	calls     []solana.PublicKey
	encodings []solana.EncodingType
}

func (f *fakeReader) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	f.calls = append(f.calls, *conf.ProgramId)
	f.encodings = append(f.encodings, opts.Encoding)
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.byProgram[conf.ProgramId.String()]
	if !ok {
		body = `{"context":{"slot":1},"value":[]}`
	}
	var out rpc.GetTokenAccountsResult
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func tokenAccountJSON(mint, amount string, decimals int) string {
	return fmt.Sprintf(`{
		"pubkey": "So11111111111111111111111111111111111111112",
		"account": {
			"lamports": 2039280,
			"owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			"executable": false,
			"rentEpoch": 0,
			"data": {
				"program": "spl-token",
				"parsed": {
					"type": "account",
					"info": {
						"mint": %q,
						"owner": "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
						"tokenAmount": {"amount": %q, "decimals": %d, "uiAmountString": "ignored"}
					}
				},
				"space": 165
			}
		}
	}`, mint, amount, decimals)
}

func TestRPCHoldingsScansBothPrograms(t *testing.T) {
	reader := &fakeReader{byProgram: map[string]string{
		solana.TokenProgramID.String(): `{"context":{"slot":1},"value":[` +
			tokenAccountJSON(mintA, "2000000", 6) + `,` + tokenAccountJSON(mintB, "0", 5) + `]}`,
		Token2022ProgramID.String(): `{"context":{"slot":1},"value":[` + tokenAccountJSON(mintB, "42", 5) + `]}`,
	}}
	inv := NewRPC(reader, nil, "", zerolog.Nop())

	got, err := inv.Holdings(context.Background(), solana.NewWallet().PublicKey())
	if err != nil {
		t.Fatalf("Holdings returned error: %v", err)
	}
	if len(reader.calls) != 2 {
		t.Fatalf("expected two program scans, got %d", len(reader.calls))
	}
	for _, enc := range reader.encodings {
		if enc != solana.EncodingJSONParsed {
			t.Fatalf("expected jsonParsed encoding, got %s", enc)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected two balances, got %+v", got)
	}
	if got[0].AssetID != mintB || got[0].BaseUnits != 42 {
		t.Fatalf("unexpected first balance %+v", got[0])
	}
	if got[1].AssetID != mintA || got[1].BaseUnits != 2_000_000 || got[1].Decimals != 6 {
		t.Fatalf("unexpected second balance %+v", got[1])
	}
}

func TestRPCHoldingsErrorIsDiscovery(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	inv := NewRPC(reader, []solana.PublicKey{solana.TokenProgramID}, rpc.CommitmentFinalized, zerolog.Nop())
	_, err := inv.Holdings(context.Background(), solana.NewWallet().PublicKey())
	if !failure.Is(err, failure.Discovery) {
		t.Fatalf("expected discovery failure, got %v", err)
	}
}

func TestParseTokenAccountJSONMissingDecimals(t *testing.T) {
	_, err := parseTokenAccountJSON([]byte(`{"parsed":{"info":{"mint":"x","tokenAmount":{"amount":"1"}}}}`))
	if !failure.Is(err, failure.Discovery) {
		t.Fatalf("expected discovery failure, got %v", err)
	}
	if _, err := parseTokenAccountJSON([]byte(`not json`)); !failure.Is(err, failure.Discovery) {
		t.Fatalf("expected discovery failure, got %v", err)
	}
}
