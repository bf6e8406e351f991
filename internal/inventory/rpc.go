package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
)

// Token2022ProgramID owns token-extension mints.
var Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

// TokenAccountReader is the slice of the RPC client the inventory needs.
type TokenAccountReader interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error)
}

// RPC reads parsed token accounts straight from a ledger node.
type RPC struct {
	client   TokenAccountReader
	programs []solana.PublicKey
	commit   rpc.CommitmentType
	log      zerolog.Logger
}

// NewRPC builds an RPC-backed inventory. With no programs it scans SPL Token and Token-2022.
func NewRPC(client TokenAccountReader, programs []solana.PublicKey, commit rpc.CommitmentType, log zerolog.Logger) *RPC {
	if len(programs) == 0 {
		programs = []solana.PublicKey{solana.TokenProgramID, Token2022ProgramID}
	}
	if commit == "" {
		commit = rpc.CommitmentConfirmed
	}
	return &RPC{client: client, programs: programs, commit: commit, log: log}
}

type parsedTokenAccount struct {
	Parsed struct {
		Info struct {
			Mint        string `json:"mint"`
			TokenAmount struct {
				Amount   string `json:"amount"`
				Decimals *int   `json:"decimals"`
			} `json:"tokenAmount"`
		} `json:"info"`
		Type string `json:"type"`
	} `json:"parsed"`
}

// Holdings implements Inventory.
func (r *RPC) Holdings(ctx context.Context, owner solana.PublicKey) ([]holding.Balance, error) {
	var raws []rawBalance
	for _, program := range r.programs {
		res, err := r.client.GetTokenAccountsByOwner(ctx, owner,
			&rpc.GetTokenAccountsConfig{ProgramId: &program},
			&rpc.GetTokenAccountsOpts{Commitment: r.commit, Encoding: solana.EncodingJSONParsed},
		)
		if err != nil {
			return nil, failure.Wrap(failure.Discovery, fmt.Errorf("get token accounts (%s): %w", program, err))
		}
		if res == nil {
			return nil, failure.New(failure.Discovery, "get token accounts: empty response")
		}
		for _, acct := range res.Value {
			raw, err := decodeTokenAccount(acct)
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
		}
		r.log.Debug().Str("program", program.String()).Int("accounts", len(res.Value)).Msg("scanned token accounts")
	}
	return aggregate(raws)
}

func decodeTokenAccount(acct *rpc.TokenAccount) (rawBalance, error) {
	if acct == nil || acct.Account.Data == nil {
		return rawBalance{}, failure.New(failure.Discovery, "token account without data")
	}
	payload := acct.Account.Data.GetRawJSON()
	if len(payload) == 0 {
		return rawBalance{}, failure.Wrap(failure.Discovery, fmt.Errorf("token account %s: not jsonParsed", acct.Pubkey))
	}
	return parseTokenAccountJSON(payload)
}

func parseTokenAccountJSON(payload []byte) (rawBalance, error) {
	var parsed parsedTokenAccount
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return rawBalance{}, failure.Wrap(failure.Discovery, fmt.Errorf("decode token account: %w", err))
	}
	info := parsed.Parsed.Info
	if info.TokenAmount.Decimals == nil {
		return rawBalance{}, failure.Wrap(failure.Discovery, fmt.Errorf("token account for mint %q missing decimals", info.Mint))
	}
	return rawBalance{mint: info.Mint, amount: info.TokenAmount.Amount, decimals: *info.TokenAmount.Decimals}, nil
}
