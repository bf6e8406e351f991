package execution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// Event is a progress notification for a state transition or a leg update.
type Event struct {
	RunID   string     `json:"run_id"`
	Time    time.Time  `json:"time"`
	State   State      `json:"state"`
	Leg     *LegResult `json:"leg,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Reporter receives progress events. Implementations must not block.
type Reporter interface {
	Report(Event)
}

// Reporters fans an event out to several reporters.
type Reporters []Reporter

func (rs Reporters) Report(ev Event) {
	for _, r := range rs {
		if r != nil {
			r.Report(ev)
		}
	}
}

// LogReporter writes events as structured log lines.
type LogReporter struct{ log zerolog.Logger }

func NewLogReporter(log zerolog.Logger) *LogReporter { return &LogReporter{log: log} }

func (r *LogReporter) Report(ev Event) {
	e := r.log.Info()
	if ev.Leg != nil && ev.Leg.Status == LegFailed {
		e = r.log.Error()
	}
	e = e.Str("run_id", ev.RunID).Str("state", string(ev.State))
	if ev.Leg != nil {
		e = e.Str("asset", ev.Leg.AssetID).Str("leg", string(ev.Leg.Status))
		if ev.Leg.Signature != (solana.Signature{}) {
			e = e.Str("signature", ev.Leg.Signature.String())
		}
	}
	e.Msg(ev.Message)
}

// Recorder keeps events in memory for inspection.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Report(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Snapshot returns a copy of the recorded events.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// States returns the sequence of states seen in transition events.
func (r *Recorder) States() []State {
	var out []State
	for _, ev := range r.Snapshot() {
		if ev.Leg == nil {
			out = append(out, ev.State)
		}
	}
	return out
}

// JSONLReporter appends events as JSON lines.
type JSONLReporter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLReporter creates or opens path for appending.
func NewJSONLReporter(path string) (*JSONLReporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLReporter{file: file, enc: json.NewEncoder(file)}, nil
}

func (r *JSONLReporter) Report(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return
	}
	_ = r.enc.Encode(ev)
}

// Close closes the file handle.
func (r *JSONLReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.enc = nil
	return err
}
