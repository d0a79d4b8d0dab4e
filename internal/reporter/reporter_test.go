package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var events []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var ev map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("invalid NDJSON line %q: %v", scanner.Text(), err)
		}
		events = append(events, ev)
	}
	return events
}

func TestJSONReporterRunID(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.ClipWritten(ClipOutcome{Subject: "A", OutputPath: "out/cage_A.avi", Start: 3, End: 5, Frames: 3})
	r.LabelsComplete(LabelOutcome{OutputFile: "t.csv", Behaviors: []string{"walk"}, Frames: 20})
	r.Warning("careful")

	events := decodeEvents(t, &buf)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	wantTypes := []string{"clip_written", "labels_complete", "warning"}
	for i, ev := range events {
		if ev["type"] != wantTypes[i] {
			t.Errorf("event %d type = %v, want %s", i, ev["type"], wantTypes[i])
		}
		if ev["run_id"] != r.RunID() {
			t.Errorf("event %d run_id = %v, want %s", i, ev["run_id"], r.RunID())
		}
	}
	if events[0]["frames"] != float64(3) {
		t.Errorf("clip_written frames = %v, want 3", events[0]["frames"])
	}
}

func TestJSONReporterDistinctRuns(t *testing.T) {
	a := NewJSONReporterWithWriter(&bytes.Buffer{})
	b := NewJSONReporterWithWriter(&bytes.Buffer{})
	if a.RunID() == b.RunID() {
		t.Errorf("two reporters share run id %s", a.RunID())
	}
}

func TestJSONReporterProgressThrottle(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporterWithWriter(&buf)

	r.ProgressStarted("Clipping", 100)
	r.Progress(ProgressSnapshot{Percent: 10})
	r.Progress(ProgressSnapshot{Percent: 10.5})
	r.Progress(ProgressSnapshot{Percent: 11})
	r.Progress(ProgressSnapshot{Percent: 99.5})

	var progress int
	for _, ev := range decodeEvents(t, &buf) {
		if ev["type"] == "progress" {
			progress++
		}
	}
	// 10.5 shares the 10% bucket and arrives inside the interval.
	if progress != 3 {
		t.Errorf("emitted %d progress events, want 3", progress)
	}
}

func TestTerminalReporter(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewTerminalReporterWithWriters(&out, &errOut, false)

	r.ClipWritten(ClipOutcome{Subject: "MouseB", OutputPath: "cage_MouseB.avi", Start: 250, End: 300, Frames: 40, Short: true})
	r.Verbose("hidden")
	r.Error(ReporterError{Title: "Clip failed", Message: "boom", Suggestion: "check the input"})

	text := out.String()
	if !strings.Contains(text, "40 of 51 frames") {
		t.Errorf("short clip not reported: %q", text)
	}
	if strings.Contains(text, "hidden") {
		t.Error("verbose message printed while verbose is off")
	}
	if !strings.Contains(errOut.String(), "Suggestion: check the input") {
		t.Errorf("error output = %q", errOut.String())
	}
}

func TestCompositeReporter(t *testing.T) {
	var a, b bytes.Buffer
	c := NewCompositeReporter(NewJSONReporterWithWriter(&a), NewJSONReporterWithWriter(&b), NullReporter{})

	c.OperationComplete("done")

	if len(decodeEvents(t, &a)) != 1 || len(decodeEvents(t, &b)) != 1 {
		t.Errorf("composite did not fan out: %q / %q", a.String(), b.String())
	}
}
