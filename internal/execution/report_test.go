package execution

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

func TestLogReporterIncludesLegFields(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(zerolog.New(&buf))
	r.Report(Event{RunID: "run-1", State: Converting, Leg: &LegResult{AssetID: "A", Status: LegSucceeded, Signature: solana.Signature{1}}, Message: "converted A"})
	out := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"asset":"A"`, `"signature"`, "converted A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}
}

func TestJSONLReporterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "run.jsonl")
	r, err := NewJSONLReporter(path)
	if err != nil {
		t.Fatalf("NewJSONLReporter: %v", err)
	}
	r.Report(Event{RunID: "run-1", State: Discovering})
	r.Report(Event{RunID: "run-1", State: AwaitingSelection, Message: "nothing to convert"})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	r.Report(Event{RunID: "run-1", State: Completed})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var states []State
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		states = append(states, ev.State)
	}
	if len(states) != 2 || states[1] != AwaitingSelection {
		t.Fatalf("unexpected states %v", states)
	}
}

func TestReportersFanOut(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	Reporters{a, nil, b}.Report(Event{State: Idle})
	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("expected both recorders to receive the event")
	}
}
