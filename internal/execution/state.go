package execution

import (
	"errors"

	solana "github.com/gagliardetto/solana-go"
)

// State is a position in the run lifecycle.
type State string

const (
	Idle              State = "idle"
	Discovering       State = "discovering"
	AwaitingSelection State = "awaiting_selection"
	Converting        State = "converting"
	Completed         State = "completed"
	Aborted           State = "aborted"
)

// Terminal reports whether no further events are accepted in s.
func (s State) Terminal() bool { return s == Completed || s == Aborted }

var (
	// ErrTerminal is returned for any event after the run completed or aborted.
	ErrTerminal = errors.New("run already finished; start a new one")
	// ErrInvalidTransition is returned when an event is not allowed in the current state.
	ErrInvalidTransition = errors.New("operation not allowed in current state")
)

// LegStatus is the outcome of converting one holding.
type LegStatus string

const (
	LegPending   LegStatus = "pending"
	LegSucceeded LegStatus = "succeeded"
	LegFailed    LegStatus = "failed"
)

// LegResult tracks one selected holding through the conversion pipeline.
type LegResult struct {
	AssetID   string           `json:"asset_id"`
	Name      string           `json:"name"`
	Status    LegStatus        `json:"status"`
	Signature solana.Signature `json:"signature,omitempty"`
	Err       error            `json:"-"`
	Reason    string           `json:"reason,omitempty"`
}

// ExplorerURL links a confirmed signature on the public explorer.
func ExplorerURL(sig solana.Signature) string {
	return "https://solscan.io/tx/" + sig.String()
}

// Report summarises a run for the caller.
type Report struct {
	RunID string
	State State
	Legs  []LegResult
	// Succeeded lists assets already converted, in order, so a rerun can skip them.
	Succeeded []string
	// Err is the first fatal error, surfaced unchanged.
	Err     error
	Message string
}
