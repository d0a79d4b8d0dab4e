package mousetrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/mousetrap/internal/reporter"
)

func TestNewClipperOptions(t *testing.T) {
	c, err := NewClipper(
		WithOutputExtension("MP4"),
		WithFallbackFPS(30),
		WithoutProxy(),
		WithoutValidation(),
		WithTempDir("/tmp/mt"),
	)
	if err != nil {
		t.Fatalf("NewClipper() error = %v", err)
	}
	if c.config.OutputExtension != ".mp4" {
		t.Errorf("OutputExtension = %q, want .mp4", c.config.OutputExtension)
	}
	if c.config.FallbackFPS != 30 || c.config.UseAVIProxy || c.config.ValidateClips {
		t.Errorf("config = %+v", c.config)
	}
	if c.config.GetTempDir() != "/tmp/mt" {
		t.Errorf("GetTempDir() = %q", c.config.GetTempDir())
	}
}

func TestNewClipperInvalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"gif output", WithOutputExtension("gif")},
		{"zero fps", WithFallbackFPS(0)},
		{"empty ffmpeg", WithFFmpeg("", "ffprobe")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClipper(tt.opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLabelerOptions(t *testing.T) {
	l, err := NewLabeler(WithBehaviors("walk"), WithExcludedBehaviors(), WithFrameOffset(0))
	if err != nil {
		t.Fatal(err)
	}
	if l.config.IncludeAllBehaviors || len(l.config.IncludedBehaviors) != 1 {
		t.Errorf("behaviors = %v all=%v", l.config.IncludedBehaviors, l.config.IncludeAllBehaviors)
	}
	if len(l.config.ExcludedBehaviors) != 0 || l.config.FrameOffset != 0 {
		t.Errorf("config = %+v", l.config)
	}

	if _, err := NewLabeler(WithTargetsSuffix("")); err == nil {
		t.Error("empty targets suffix should be rejected")
	}
	if _, err := NewLabeler(WithFrameOffset(-1)); err == nil {
		t.Error("negative offset should be rejected")
	}
}

func TestClipRejectsOverlappingIntervals(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "cage.avi")
	if err := os.WriteFile(input, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	set := NewIntervalSet()
	set.Put("MouseA", Marks{Enter: Frame(10), Exit: Frame(50)})
	set.Put("MouseB", Marks{Enter: Frame(40), Exit: Frame(60)})

	var events []Event
	handler := func(e Event) error {
		events = append(events, e)
		return nil
	}

	c, err := NewClipper()
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Clip(context.Background(), input, filepath.Join(dir, "out"), set, handler)
	if !IsKind(err, KindOverlappingIntervals) {
		t.Fatalf("Clip() error = %v, want overlapping intervals", err)
	}
	if got := Subjects(err); len(got) != 2 {
		t.Errorf("Subjects() = %v", got)
	}

	var sawError bool
	for _, e := range events {
		if e.Type() == EventTypeError {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("no error event among %d events", len(events))
	}
}

const annotationText = `Configuration file
walk w
rest r
other o
S1: start end type
------------------
1 2 walk
3 3 other
4 4 rest
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLabelerLabel(t *testing.T) {
	dir := t.TempDir()
	ann := writeFile(t, dir, "session.txt", annotationText)
	feat := writeFile(t, dir, "session.csv", "x\n0.1\n0.2\n0.3\n0.4\n")

	l, err := NewLabeler()
	if err != nil {
		t.Fatal(err)
	}
	res, err := l.Label(context.Background(), ann, feat, "", nil)
	if err != nil {
		t.Fatalf("Label() error = %v", err)
	}
	if res.OutputFile != filepath.Join(dir, "session_targets.csv") {
		t.Errorf("OutputFile = %q", res.OutputFile)
	}
	if len(res.Behaviors) != 2 || res.Behaviors[0] != "rest" || res.Behaviors[1] != "walk" {
		t.Errorf("Behaviors = %v, want [rest walk]", res.Behaviors)
	}

	data, err := os.ReadFile(res.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "x,rest,walk\n0.1,0,1\n0.2,0,1\n0.3,0,0\n0.4,1,0\n"
	if string(data) != want {
		t.Errorf("targets = %q, want %q", data, want)
	}
}

func TestLabelerLabelDir(t *testing.T) {
	annDir := t.TempDir()
	featDir := t.TempDir()
	outDir := t.TempDir()
	writeFile(t, annDir, "a.txt", annotationText)
	writeFile(t, annDir, "b.txt", annotationText)
	writeFile(t, annDir, "orphan.txt", annotationText)
	writeFile(t, featDir, "a.csv", "x\n1\n2\n3\n4\n")
	writeFile(t, featDir, "b.csv", "x\n1\n")

	l, err := NewLabeler()
	if err != nil {
		t.Fatal(err)
	}

	var labelEvents int
	handler := func(e Event) error {
		if _, ok := e.(LabelsCompleteEvent); ok {
			labelEvents++
		}
		return nil
	}
	batch, err := l.LabelDir(context.Background(), annDir, featDir, outDir, handler)
	if err != nil {
		t.Fatalf("LabelDir() error = %v", err)
	}
	if batch.TotalFiles != 2 || batch.SuccessfulCount != 1 {
		t.Errorf("batch = %+v", batch)
	}
	if len(batch.Unpaired) != 1 || filepath.Base(batch.Unpaired[0]) != "orphan.txt" {
		t.Errorf("Unpaired = %v", batch.Unpaired)
	}
	if len(batch.Failed) != 1 || !IsKind(batch.Failed[0].Err, KindSegmentOutOfBounds) {
		t.Errorf("Failed = %+v", batch.Failed)
	}
	if labelEvents != 1 {
		t.Errorf("labels events = %d, want 1", labelEvents)
	}
}

func TestFindVideos(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.SEQ", "")
	writeFile(t, dir, "a.avi", "")
	writeFile(t, dir, "notes.txt", "")

	files, err := FindVideos(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.avi" {
		t.Errorf("FindVideos() = %v", files)
	}
}

func TestEventReporter(t *testing.T) {
	var got []Event
	rep := newReporter(func(e Event) error {
		got = append(got, e)
		return nil
	})

	rep.Hardware(reporter.HardwareSummary{})
	rep.ClipWritten(reporter.ClipOutcome{Subject: "MouseA", Frames: 40, Short: true})
	rep.ValidationComplete(reporter.ValidationSummary{
		Passed: true,
		Steps:  []reporter.ValidationStep{{Name: "Frame count", Passed: true}},
	})
	rep.BatchComplete(reporter.BatchSummary{SuccessfulCount: 2, TotalFiles: 3})

	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	clip, ok := got[0].(ClipWrittenEvent)
	if !ok || clip.Subject != "MouseA" || !clip.Short {
		t.Errorf("clip event = %+v", got[0])
	}
	v := got[1].(ValidationCompleteEvent)
	if len(v.ValidationSteps) != 1 || v.ValidationSteps[0].Step != "Frame count" {
		t.Errorf("validation event = %+v", v)
	}
	if b := got[2].(BatchCompleteEvent); b.TotalFiles != 3 || b.Type() != EventTypeBatchComplete {
		t.Errorf("batch event = %+v", b)
	}

	if _, ok := newReporter(nil).(reporter.NullReporter); !ok {
		t.Error("nil handler should give a NullReporter")
	}
}
