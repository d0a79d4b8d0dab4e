package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

func TestKindNamesAreDistinct(t *testing.T) {
	seen := make(map[string]ErrorKind)
	for k := KindIO; k <= KindRowMismatch; k++ {
		name := k.String()
		if name == "Unknown error" {
			t.Errorf("kind %d has no name", k)
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("kinds %d and %d share the name %q", prev, k, name)
		}
		seen[name] = k
	}
	if got := ErrorKind(-1).String(); got != "Unknown error" {
		t.Errorf("out of range kind = %q", got)
	}
}

func TestCoreErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		want string
	}{
		{
			name: "with cause",
			err:  NewSourceUnreadableError("cage1.seq", errors.New("moov atom not found")),
			want: "Source unreadable: could not open cage1.seq for clipping: moov atom not found",
		},
		{
			name: "message only",
			err:  New(KindCSVSchema, "missing column exit"),
			want: "CSV schema error: missing column exit",
		},
		{
			name: "no files",
			err:  NewNoFilesFoundError("/data/cages"),
			want: "No files found: no suitable input files found in /data/cages",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	cause := errors.New("permission denied")
	err := fmt.Errorf("clipping cage1: %w", Wrap(KindIO, "creating clip", cause))

	if !IsKind(err, KindIO) || IsKind(err, KindPath) {
		t.Errorf("IsKind through fmt wrapping failed for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause lost through Unwrap")
	}
	if !errors.Is(err, &CoreError{Kind: KindIO}) || errors.Is(err, &CoreError{Kind: KindConfig}) {
		t.Error("errors.Is should match on kind alone")
	}
	if IsKind(cause, KindIO) {
		t.Error("plain error matched a kind")
	}
}

func TestCancelledAndNoFiles(t *testing.T) {
	cancelled := fmt.Errorf("batch stopped: %w", NewCancelledError())
	noFiles := NewNoFilesFoundError("/data")

	if !IsCancelled(cancelled) || IsCancelled(noFiles) {
		t.Error("IsCancelled mismatch")
	}
	if !IsNoFilesFound(noFiles) || IsNoFilesFound(cancelled) {
		t.Error("IsNoFilesFound mismatch")
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *CoreError
		want string
	}{
		{"start", NewCommandStartError("pandoc", exec.ErrNotFound), "failed to execute pandoc: " + exec.ErrNotFound.Error()},
		{"wait", NewCommandWaitError("ffmpeg", errors.New("broken pipe")), "failed to wait for ffmpeg: broken pipe"},
		{"exit with stderr", NewCommandFailedError("pdftotext", 1, "Syntax Error"), "command pdftotext failed with exit code 1: Syntax Error"},
		{"exit without stderr", NewCommandFailedError("ffprobe", 2, ""), "command ffprobe failed with exit code 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsKind(tt.err, KindCommand) {
				t.Errorf("kind = %v, want command", tt.err.Kind)
			}
			var cmdErr *CommandError
			if !errors.As(tt.err, &cmdErr) {
				t.Fatal("no CommandError inside")
			}
			if cmdErr.Error() != tt.want || !strings.HasSuffix(tt.err.Error(), tt.want) {
				t.Errorf("Error() = %q, want suffix %q", tt.err.Error(), tt.want)
			}
		})
	}

	// A tool missing from PATH is a start failure, not an exit status.
	_, lookErr := exec.LookPath("mousetrap-no-such-tool")
	wrapped := WrapExecError("mousetrap-no-such-tool", lookErr, "")
	var cmdErr *CommandError
	if !errors.As(wrapped, &cmdErr) || cmdErr.Kind != CommandStart {
		t.Errorf("WrapExecError(missing tool) = %v, want CommandStart", wrapped)
	}
}

func TestSubjectErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *CoreError
		kind     ErrorKind
		subjects []string
		message  string
	}{
		{
			name:     "incomplete",
			err:      NewIncompleteAnnotationError("MouseA"),
			kind:     KindIncompleteAnnotation,
			subjects: []string{"MouseA"},
			message:  "Incomplete annotation: missing enter or exit frame for intruder: 'MouseA'",
		},
		{
			name:     "inverted",
			err:      NewInvalidOrderError("MouseA", 60, 50),
			kind:     KindInvalidOrder,
			subjects: []string{"MouseA"},
			message:  "Invalid interval order: exit frame occurs before enter frame for intruder: 'MouseA' (frames 60-50)",
		},
		{
			name:     "overlap",
			err:      NewOverlappingIntervalsError("A", "B", 40, 50),
			kind:     KindOverlappingIntervals,
			subjects: []string{"A", "B"},
			message:  "Overlapping intervals: overlapping intruder intervals found between: 'A' and 'B' (frames 40-50)",
		},
		{
			name:     "out of bounds",
			err:      NewSegmentOutOfBoundsError("walk", 1, 10, 1, 5),
			kind:     KindSegmentOutOfBounds,
			subjects: []string{"walk"},
			message:  "Segment out of bounds: segment maps to rows 0-9, which is outside 0..4; adjust frame offset if this is an off-by-one error: 'walk' (frames 1-10)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !IsKind(tt.err, tt.kind) {
				t.Errorf("IsKind(%v) = false, want true", tt.kind)
			}
			got := Subjects(tt.err)
			if len(got) != len(tt.subjects) {
				t.Fatalf("Subjects() = %v, want %v", got, tt.subjects)
			}
			for i := range got {
				if got[i] != tt.subjects[i] {
					t.Errorf("Subjects()[%d] = %q, want %q", i, got[i], tt.subjects[i])
				}
			}
			if tt.err.Error() != tt.message {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.message)
			}
		})
	}
}

func TestSubjectsWithoutDetail(t *testing.T) {
	if got := Subjects(NewConfigError("test")); got != nil {
		t.Errorf("Subjects() = %v, want nil", got)
	}
}
