// Package failure classifies errors raised along the discovery and conversion pipeline.
package failure

import "errors"

// Kind names the pipeline stage a failure originated from.
type Kind string

const (
	// Discovery means the ledger read for balances failed or returned malformed data.
	Discovery Kind = "discovery"
	// Pricing means the price source was unreachable or its payload could not be parsed.
	Pricing Kind = "pricing"
	// NoRoute means the aggregator answered but found no viable conversion path.
	NoRoute Kind = "no_route"
	// QuoteNetwork means the quote request kept failing at the transport level.
	QuoteNetwork Kind = "quote_network"
	// Build means the aggregator could not assemble a transaction for a quote.
	Build Kind = "build"
	// SigningRejected means the signing authority declined or was unavailable.
	SigningRejected Kind = "signing_rejected"
	// Broadcast means the ledger refused the submission.
	Broadcast Kind = "broadcast"
	// ConfirmationTimeout means the transaction was not confirmed inside its validity window.
	ConfirmationTimeout Kind = "confirmation_timeout"
	// OnChainExecution means the transaction landed but its execution failed.
	OnChainExecution Kind = "onchain_execution"
)

// Error attaches a Kind to an underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// New builds a tagged failure from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// KindOf reports the outermost Kind in err's chain, or "" when untagged.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
