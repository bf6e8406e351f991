// Package jupiter talks to the Jupiter swap aggregator: route quotes and swap transaction assembly.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"

	"dustsweep-go/internal/failure"
)

// DefaultBaseURL is the public aggregator endpoint.
const DefaultBaseURL = "https://quote-api.jup.ag"

// SOLMint is the wrapped-SOL mint used as the default conversion target.
const SOLMint = "So11111111111111111111111111111111111111112"

// Error codes the aggregator uses when it cannot route a pair.
var noRouteCodes = map[string]struct{}{
	"COULD_NOT_FIND_ANY_ROUTE": {},
	"NO_ROUTES_FOUND":          {},
	"TOKEN_NOT_TRADABLE":       {},
}

// Client is a thin HTTP client for the quote and swap endpoints.
type Client struct {
	Base string
	Http *http.Client
	// WrapUnwrapSOL asks the aggregator to wrap/unwrap native SOL around the swap.
	WrapUnwrapSOL bool
	// PrioritizationFeeLamports is forwarded to the swap endpoint; 0 leaves it unset.
	PrioritizationFeeLamports uint64
}

// NewClient builds a client against base (DefaultBaseURL when empty).
func NewClient(base string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		Base:          strings.TrimSuffix(base, "/"),
		Http:          &http.Client{Timeout: 8 * time.Second},
		WrapUnwrapSOL: true,
	}
}

// QuoteRequest identifies one conversion to price.
type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // base units of InputMint
	SlippageBps int
}

// Quote is an accepted route. Route holds the aggregator's response verbatim for the build call.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       uint64
	OutAmount      string
	SlippageBps    int
	PriceImpactPct string
	Route          json.RawMessage
}

type quoteResponse struct {
	InputMint      string            `json:"inputMint"`
	OutputMint     string            `json:"outputMint"`
	InAmount       string            `json:"inAmount"`
	OutAmount      string            `json:"outAmount"`
	SlippageBps    int               `json:"slippageBps"`
	PriceImpactPct json.Number       `json:"priceImpactPct"`
	RoutePlan      []json.RawMessage `json:"routePlan"`
}

type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

// GetQuote performs a single quote request. NoRoute failures are tagged; other errors are untagged
// so the retrying QuoteService can decide what to surface.
func (c *Client) GetQuote(ctx context.Context, r QuoteRequest) (*Quote, error) {
	if r.Amount == 0 {
		return nil, failure.New(failure.NoRoute, "quote amount must be positive")
	}
	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", strconv.FormatUint(r.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	q.Set("onlyDirectRoutes", "false")
	u := c.Base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.Unmarshal(body, &ae) == nil {
			if _, ok := noRouteCodes[ae.ErrorCode]; ok {
				return nil, failure.Wrap(failure.NoRoute, fmt.Errorf("no route %s -> %s: %s", r.InputMint, r.OutputMint, ae.Error))
			}
		}
		return nil, fmt.Errorf("jupiter quote status %d", resp.StatusCode)
	}
	return parseQuote(body, r)
}

func parseQuote(body []byte, r QuoteRequest) (*Quote, error) {
	var out quoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if len(out.RoutePlan) == 0 {
		return nil, failure.Wrap(failure.NoRoute, fmt.Errorf("no route %s -> %s", r.InputMint, r.OutputMint))
	}
	if out.InputMint != r.InputMint || out.OutputMint != r.OutputMint {
		return nil, fmt.Errorf("quote mints %s -> %s do not match request %s -> %s", out.InputMint, out.OutputMint, r.InputMint, r.OutputMint)
	}
	inAmount, err := strconv.ParseUint(out.InAmount, 10, 64)
	if err != nil || inAmount == 0 {
		return nil, fmt.Errorf("quote has invalid inAmount %q", out.InAmount)
	}
	if _, err := strconv.ParseUint(out.OutAmount, 10, 64); err != nil {
		return nil, fmt.Errorf("quote has invalid outAmount %q", out.OutAmount)
	}
	return &Quote{
		InputMint:      out.InputMint,
		OutputMint:     out.OutputMint,
		InAmount:       inAmount,
		OutAmount:      out.OutAmount,
		SlippageBps:    out.SlippageBps,
		PriceImpactPct: out.PriceImpactPct.String(),
		Route:          json.RawMessage(body),
	}, nil
}

// Build asks the aggregator for an unsigned swap transaction paying from owner.
func (c *Client) Build(ctx context.Context, quote *Quote, owner solana.PublicKey) (*solana.Transaction, error) {
	if quote == nil || len(quote.Route) == 0 {
		return nil, failure.New(failure.Build, "build requires an accepted quote")
	}
	payload := map[string]any{
		"userPublicKey":       owner.String(),
		"wrapAndUnwrapSol":    c.WrapUnwrapSOL,
		"asLegacyTransaction": false,
		"useTokenLedger":      false,
		"quoteResponse":       quote.Route,
	}
	if c.PrioritizationFeeLamports > 0 {
		payload["prioritizationFeeLamports"] = c.PrioritizationFeeLamports
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failure.Wrap(failure.Build, fmt.Errorf("encode swap request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return nil, failure.Wrap(failure.Build, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Http.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Build, fmt.Errorf("swap request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &ae) == nil && ae.Error != "" {
			return nil, failure.Wrap(failure.Build, fmt.Errorf("jupiter swap status %d: %s", resp.StatusCode, ae.Error))
		}
		return nil, failure.Wrap(failure.Build, fmt.Errorf("jupiter swap status %d", resp.StatusCode))
	}
	var sr struct {
		SwapTransaction string `json:"swapTransaction"` // base64-encoded tx (unsigned)
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, failure.Wrap(failure.Build, fmt.Errorf("decode swap response: %w", err))
	}
	if sr.SwapTransaction == "" {
		return nil, failure.New(failure.Build, "swap response missing swapTransaction")
	}
	return decodeTransaction(sr.SwapTransaction, owner)
}

func decodeTransaction(b64 string, owner solana.PublicKey) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, failure.Wrap(failure.Build, fmt.Errorf("decode tx: %w", err))
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, failure.Wrap(failure.Build, fmt.Errorf("unmarshal tx: %w", err))
	}
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(owner) {
		return nil, failure.Wrap(failure.Build, errors.New("swap transaction fee payer is not the account owner"))
	}
	return tx, nil
}
