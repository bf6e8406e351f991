package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rs/zerolog"

	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/metrics"
)

const (
	DefaultSubmitRetries = 2
	DefaultPollInterval  = 2 * time.Second
	// DefaultHeightFailures bounds consecutive failed block height reads while confirming.
	DefaultHeightFailures = 5
	// DefaultMaxConfirmWait covers a full blockhash window of about 150 blocks at 400ms.
	DefaultMaxConfirmWait = 150 * 400 * time.Millisecond
)

// LedgerClient is the slice of the RPC client the broadcaster needs.
type LedgerClient interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// Checkpoint is the freshness window a submission is confirmed against.
type Checkpoint struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// BroadcastOptions tunes submission and confirmation.
type BroadcastOptions struct {
	Commitment    rpc.CommitmentType
	SkipPreflight bool
	// MaxRetries is forwarded to the node's own rebroadcast loop.
	MaxRetries uint
	// SubmitRetries bounds local resubmission after transport errors.
	SubmitRetries int
	PollInterval  time.Duration
	// HeightFailures and MaxConfirmWait end the wait when the window cannot be observed.
	HeightFailures int
	MaxConfirmWait time.Duration
}

// Broadcaster submits signed transactions and waits for confirmation.
type Broadcaster struct {
	client LedgerClient
	opts   BroadcastOptions
	log    zerolog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBroadcaster builds a broadcaster over client.
func NewBroadcaster(client LedgerClient, opts BroadcastOptions, log zerolog.Logger) *Broadcaster {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.SubmitRetries < 0 {
		opts.SubmitRetries = DefaultSubmitRetries
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.HeightFailures <= 0 {
		opts.HeightFailures = DefaultHeightFailures
	}
	if opts.MaxConfirmWait <= 0 {
		opts.MaxConfirmWait = DefaultMaxConfirmWait
	}
	return &Broadcaster{client: client, opts: opts, log: log, now: time.Now, sleep: sleepCtx}
}

// ParseCommitment maps a config string onto an RPC commitment, defaulting to confirmed.
func ParseCommitment(s string) rpc.CommitmentType {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	}
	return rpc.CommitmentConfirmed
}

// Broadcast fetches a checkpoint, submits tx, and waits for it to confirm inside the checkpoint's window.
func (b *Broadcaster) Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if tx == nil || len(tx.Signatures) == 0 {
		return solana.Signature{}, failure.New(failure.Broadcast, "refusing to broadcast an unsigned transaction")
	}
	cp, err := b.checkpoint(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := b.submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	start := b.now()
	err = b.confirm(ctx, sig, cp)
	metrics.ConfirmationSeconds.Observe(b.now().Sub(start).Seconds())
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (b *Broadcaster) checkpoint(ctx context.Context) (Checkpoint, error) {
	res, err := b.client.GetLatestBlockhash(ctx, b.opts.Commitment)
	if err != nil {
		return Checkpoint{}, failure.Wrap(failure.Broadcast, fmt.Errorf("get latest blockhash: %w", err))
	}
	if res == nil || res.Value == nil {
		return Checkpoint{}, failure.New(failure.Broadcast, "get latest blockhash: empty response")
	}
	return Checkpoint{Blockhash: res.Value.Blockhash, LastValidBlockHeight: res.Value.LastValidBlockHeight}, nil
}

func (b *Broadcaster) submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	maxRetries := b.opts.MaxRetries
	opts := rpc.TransactionOpts{
		SkipPreflight:       b.opts.SkipPreflight,
		PreflightCommitment: b.opts.Commitment,
		MaxRetries:          &maxRetries,
	}
	var lastErr error
	for attempt := 0; attempt <= b.opts.SubmitRetries; attempt++ {
		sig, err := b.client.SendTransactionWithOpts(ctx, tx, opts)
		if err == nil {
			metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
			b.log.Info().Str("signature", sig.String()).Int("attempt", attempt+1).Msg("transaction submitted")
			return sig, nil
		}
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
			return solana.Signature{}, failure.Wrap(failure.Broadcast, fmt.Errorf("submission rejected: %w", err))
		}
		metrics.SubmissionsTotal.WithLabelValues("transport_error").Inc()
		lastErr = err
		b.log.Warn().Err(err).Int("attempt", attempt+1).Msg("submit failed, retrying")
		if ctx.Err() != nil {
			break
		}
	}
	return solana.Signature{}, failure.Wrap(failure.Broadcast, fmt.Errorf("submit failed after %d attempts: %w", b.opts.SubmitRetries+1, lastErr))
}

// confirm polls until sig reaches the configured commitment, fails on-chain, or the
// ledger moves past the checkpoint's last valid height. When the height cannot be read
// the wait is bounded by HeightFailures and MaxConfirmWait instead.
func (b *Broadcaster) confirm(ctx context.Context, sig solana.Signature, cp Checkpoint) error {
	deadline := b.now().Add(b.opts.MaxConfirmWait)
	heightFailures := 0
	for {
		res, err := b.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			b.log.Debug().Err(err).Str("signature", sig.String()).Msg("signature status poll failed")
		} else if res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return failure.Wrap(failure.OnChainExecution, fmt.Errorf("transaction %s failed: %v", sig, st.Err))
			}
			if reached(st.ConfirmationStatus, b.opts.Commitment) {
				return nil
			}
		}

		height, err := b.client.GetBlockHeight(ctx, b.opts.Commitment)
		switch {
		case err != nil:
			heightFailures++
			b.log.Debug().Err(err).Int("failures", heightFailures).Msg("block height poll failed")
			if heightFailures >= b.opts.HeightFailures {
				return failure.Wrap(failure.ConfirmationTimeout,
					fmt.Errorf("transaction %s unconfirmed, block height unavailable: %w", sig, err))
			}
		case height > cp.LastValidBlockHeight:
			return failure.Wrap(failure.ConfirmationTimeout,
				fmt.Errorf("transaction %s not confirmed before block height %d", sig, cp.LastValidBlockHeight))
		default:
			heightFailures = 0
		}
		if b.now().After(deadline) {
			return failure.Wrap(failure.ConfirmationTimeout,
				fmt.Errorf("transaction %s not confirmed within %s", sig, b.opts.MaxConfirmWait))
		}
		if err := b.sleep(ctx, b.opts.PollInterval); err != nil {
			return failure.Wrap(failure.ConfirmationTimeout, fmt.Errorf("awaiting confirmation of %s: %w", sig, err))
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
