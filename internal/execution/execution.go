// Package execution drives a dust sweep: discovery, selection and the sequential conversion of
// each selected holding into the target asset.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dustsweep-go/internal/dex/jupiter"
	"dustsweep-go/internal/failure"
	"dustsweep-go/internal/holding"
	"dustsweep-go/internal/metrics"
)

// Inventory lists the balances held by an account.
type Inventory interface {
	Holdings(ctx context.Context, owner solana.PublicKey) ([]holding.Balance, error)
}

// Enricher prices balances into holdings.
type Enricher interface {
	Enrich(ctx context.Context, balances []holding.Balance) ([]holding.Holding, error)
}

// Quoter fetches a route for one leg.
type Quoter interface {
	Quote(ctx context.Context, r jupiter.QuoteRequest) (*jupiter.Quote, error)
}

// Builder turns a route into an unsigned transaction.
type Builder interface {
	Build(ctx context.Context, quote *jupiter.Quote, owner solana.PublicKey) (*solana.Transaction, error)
}

// Signer signs on behalf of the account being swept.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// Broadcaster submits a signed transaction and waits for it to confirm.
type Broadcaster interface {
	Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Inventory   Inventory
	Oracle      Enricher
	Quoter      Quoter
	Builder     Builder
	Signer      Signer
	Broadcaster Broadcaster
}

// Options tune a run.
type Options struct {
	// Owner is the swept account; zero means the signer's account.
	Owner       solana.PublicKey
	TargetMint  string
	SlippageBps int
	Filter      holding.DustFilter
	// RequoteOnBuildFailure fetches one fresh quote when building from the first one fails.
	RequoteOnBuildFailure bool
}

// Orchestrator is the state machine for a single run. It is not reusable once terminal.
type Orchestrator struct {
	deps     Deps
	opts     Options
	reporter Reporter
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	runID     string
	state     State
	status    string
	holdings  []holding.Holding
	selection *holding.SelectionSet
	legs      []LegResult
	err       error
}

// New builds an idle orchestrator. The target asset is always excluded from discovery.
func New(deps Deps, opts Options, reporter Reporter, log zerolog.Logger) *Orchestrator {
	if opts.TargetMint == "" {
		opts.TargetMint = jupiter.SOLMint
	}
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = jupiter.DefaultSlippageBps
	}
	exclude := make([]string, 0, len(opts.Filter.Exclude)+1)
	exclude = append(exclude, opts.Filter.Exclude...)
	opts.Filter.Exclude = append(exclude, opts.TargetMint)
	if reporter == nil {
		reporter = Reporters{}
	}
	runID := uuid.NewString()
	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		reporter: reporter,
		log:      log.With().Str("run_id", runID).Logger(),
		now:      time.Now,
		runID:    runID,
		state:    Idle,
	}
}

// RunID identifies this run in logs and events.
func (o *Orchestrator) RunID() string { return o.runID }

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns the latest human-readable status line.
func (o *Orchestrator) Status() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Holdings returns the dust holdings of the last discovery.
func (o *Orchestrator) Holdings() []holding.Holding {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]holding.Holding, len(o.holdings))
	copy(out, o.holdings)
	return out
}

// Selection returns a copy of the current selection.
func (o *Orchestrator) Selection() map[string]bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selection == nil {
		return map[string]bool{}
	}
	return o.selection.Snapshot()
}

// Discover lists, prices and filters the account's holdings, replacing any previous selection.
func (o *Orchestrator) Discover(ctx context.Context) error {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return ErrTerminal
	}
	if o.state != Idle && o.state != AwaitingSelection {
		o.mu.Unlock()
		return fmt.Errorf("discover while %s: %w", o.state, ErrInvalidTransition)
	}
	o.holdings = nil
	o.selection = nil
	o.transitionLocked(Discovering, "discovering holdings")
	o.mu.Unlock()

	dust, err := o.discover(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.err = err
		o.transitionLocked(Aborted, err.Error())
		return err
	}
	o.holdings = dust
	o.selection = holding.NewSelectionSet(dust)
	if len(dust) == 0 {
		o.transitionLocked(AwaitingSelection, "nothing to convert")
		return nil
	}
	o.transitionLocked(AwaitingSelection, fmt.Sprintf("found %d dust holdings", len(dust)))
	return nil
}

func (o *Orchestrator) owner() solana.PublicKey {
	if o.opts.Owner != (solana.PublicKey{}) || o.deps.Signer == nil {
		return o.opts.Owner
	}
	return o.deps.Signer.PublicKey()
}

func (o *Orchestrator) discover(ctx context.Context) ([]holding.Holding, error) {
	owner := o.owner()
	balances, err := o.deps.Inventory.Holdings(ctx, owner)
	if err != nil {
		return nil, tag(failure.Discovery, err)
	}
	priced, err := o.deps.Oracle.Enrich(ctx, balances)
	if err != nil {
		return nil, tag(failure.Pricing, err)
	}
	dust := o.opts.Filter.Apply(priced)
	o.log.Info().Int("balances", len(balances)).Int("dust", len(dust)).Str("owner", owner.String()).Msg("discovery finished")
	return dust, nil
}

// Toggle flips whether assetID is converted.
func (o *Orchestrator) Toggle(assetID string) (bool, error) {
	sel, err := o.selectable()
	if err != nil {
		return false, err
	}
	return sel.Toggle(assetID)
}

// Select sets whether assetID is converted.
func (o *Orchestrator) Select(assetID string, on bool) error {
	sel, err := o.selectable()
	if err != nil {
		return err
	}
	return sel.Set(assetID, on)
}

func (o *Orchestrator) selectable() (*holding.SelectionSet, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		return nil, ErrTerminal
	}
	if o.selection == nil {
		return nil, fmt.Errorf("select while %s: %w", o.state, ErrInvalidTransition)
	}
	return o.selection, nil
}

// Convert runs every selected holding through quote, build, sign and broadcast in discovery
// order. The first failing leg aborts the run and leaves the remaining legs pending.
func (o *Orchestrator) Convert(ctx context.Context) (Report, error) {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return Report{}, ErrTerminal
	}
	if o.state != AwaitingSelection {
		o.mu.Unlock()
		return Report{}, fmt.Errorf("convert while %s: %w", o.state, ErrInvalidTransition)
	}
	if o.deps.Signer == nil || !o.deps.Signer.PublicKey().Equals(o.owner()) {
		o.mu.Unlock()
		return Report{}, failure.New(failure.SigningRejected, "signer does not control the swept account")
	}
	selected := holding.Selected(o.holdings, o.selection.Snapshot())
	o.legs = make([]LegResult, len(selected))
	for i, h := range selected {
		o.legs[i] = LegResult{AssetID: h.AssetID, Name: h.DisplayName, Status: LegPending}
	}
	o.transitionLocked(Converting, fmt.Sprintf("converting %d holdings", len(selected)))
	o.mu.Unlock()

	for i, h := range selected {
		sig, err := o.convert(ctx, h)
		if err != nil {
			o.failLeg(i, err)
			return o.Report(), err
		}
		o.succeedLeg(i, sig)
	}

	o.mu.Lock()
	o.transitionLocked(Completed, fmt.Sprintf("converted %d holdings", len(selected)))
	o.mu.Unlock()
	return o.Report(), nil
}

func (o *Orchestrator) convert(ctx context.Context, h holding.Holding) (solana.Signature, error) {
	owner := o.owner()
	req := jupiter.QuoteRequest{
		InputMint:   h.AssetID,
		OutputMint:  o.opts.TargetMint,
		Amount:      h.BaseUnits,
		SlippageBps: o.opts.SlippageBps,
	}
	log := o.log.With().Str("asset", h.AssetID).Logger()

	quote, err := o.deps.Quoter.Quote(ctx, req)
	if err != nil {
		return solana.Signature{}, tag(failure.QuoteNetwork, err)
	}
	tx, err := o.deps.Builder.Build(ctx, quote, owner)
	if err != nil && o.opts.RequoteOnBuildFailure {
		log.Warn().Err(err).Msg("build failed, refreshing quote")
		quote, err = o.deps.Quoter.Quote(ctx, req)
		if err != nil {
			return solana.Signature{}, tag(failure.QuoteNetwork, err)
		}
		tx, err = o.deps.Builder.Build(ctx, quote, owner)
	}
	if err != nil {
		return solana.Signature{}, tag(failure.Build, err)
	}
	signed, err := o.deps.Signer.Sign(ctx, tx)
	if err != nil {
		return solana.Signature{}, tag(failure.SigningRejected, err)
	}
	if signed == nil || len(signed.Signatures) == 0 {
		return solana.Signature{}, failure.New(failure.SigningRejected, "signer returned no signed transaction")
	}
	sig, err := o.deps.Broadcaster.Broadcast(ctx, signed)
	if err != nil {
		return solana.Signature{}, tag(failure.Broadcast, err)
	}
	log.Info().Str("signature", sig.String()).Str("out_amount", quote.OutAmount).Msg("leg confirmed")
	return sig, nil
}

func (o *Orchestrator) succeedLeg(i int, sig solana.Signature) {
	o.mu.Lock()
	defer o.mu.Unlock()
	leg := &o.legs[i]
	leg.Status = LegSucceeded
	leg.Signature = sig
	metrics.LegsTotal.WithLabelValues(string(LegSucceeded), "").Inc()
	o.status = fmt.Sprintf("converted %s: %s", leg.Name, ExplorerURL(sig))
	o.emitLegLocked(*leg)
}

func (o *Orchestrator) failLeg(i int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	leg := &o.legs[i]
	leg.Status = LegFailed
	leg.Err = err
	leg.Reason = err.Error()
	metrics.LegsTotal.WithLabelValues(string(LegFailed), string(failure.KindOf(err))).Inc()
	o.emitLegLocked(*leg)
	o.err = err
	o.transitionLocked(Aborted, fmt.Sprintf("%s (%d converted before abort)", err, o.succeededLocked()))
}

// Report summarises the run so far.
func (o *Orchestrator) Report() Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	legs := make([]LegResult, len(o.legs))
	copy(legs, o.legs)
	r := Report{
		RunID:     o.runID,
		State:     o.state,
		Legs:      legs,
		Succeeded: o.succeededIDsLocked(),
		Err:       o.err,
		Message:   o.status,
	}
	return r
}

func (o *Orchestrator) succeededLocked() int { return len(o.succeededIDsLocked()) }

func (o *Orchestrator) succeededIDsLocked() []string {
	var ids []string
	for _, l := range o.legs {
		if l.Status == LegSucceeded {
			ids = append(ids, l.AssetID)
		}
	}
	return ids
}

func (o *Orchestrator) transitionLocked(to State, msg string) {
	o.state = to
	o.status = msg
	if to != Discovering && to != Converting {
		metrics.RunsTotal.WithLabelValues(string(to)).Inc()
	}
	o.reporter.Report(Event{RunID: o.runID, Time: o.now(), State: to, Message: msg})
}

func (o *Orchestrator) emitLegLocked(leg LegResult) {
	msg := leg.Reason
	if leg.Status == LegSucceeded {
		msg = fmt.Sprintf("converted %s: %s", leg.Name, ExplorerURL(leg.Signature))
	}
	o.reporter.Report(Event{RunID: o.runID, Time: o.now(), State: o.state, Leg: &leg, Message: msg})
}

// tag labels untyped errors from a stage so every leg failure carries a Kind.
func tag(kind failure.Kind, err error) error {
	if failure.KindOf(err) != "" {
		return err
	}
	return failure.Wrap(kind, err)
}
