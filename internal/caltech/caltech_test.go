package caltech

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

const sampleAnnotation = `Caltech Behavior Annotator - Annotation File

Configuration file:
walk	w
rest	r

S1:	start	end	type
-----------------------------
1	10	walk
11	20	rest
`

func TestParse(t *testing.T) {
	ann, err := Parse(strings.NewReader(sampleAnnotation))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantCodes := map[string]string{"walk": "w", "rest": "r"}
	if len(ann.Codes) != len(wantCodes) {
		t.Errorf("Codes = %v, want %v", ann.Codes, wantCodes)
	}
	for k, v := range wantCodes {
		if ann.Codes[k] != v {
			t.Errorf("Codes[%q] = %q, want %q", k, ann.Codes[k], v)
		}
	}

	want := []Segment{
		{StartFrame: 1, EndFrame: 10, Behavior: "walk"},
		{StartFrame: 11, EndFrame: 20, Behavior: "rest"},
	}
	if !slices.Equal(ann.Segments, want) {
		t.Errorf("Segments = %+v, want %+v", ann.Segments, want)
	}
}

func TestParseSkipsNoise(t *testing.T) {
	input := `Configuration file
attack a
other o
extra tokens here
S1: start end type
---
S2: note
1 5 attack
x 7 attack
6 8
9 12 other trailing
13 15 attack

16 18 other
`
	ann, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(ann.Codes) != 2 {
		t.Errorf("Codes = %v, want only the two-token lines", ann.Codes)
	}
	want := []Segment{
		{1, 5, "attack"},
		{13, 15, "attack"},
		{16, 18, "other"},
	}
	if !slices.Equal(ann.Segments, want) {
		t.Errorf("Segments = %+v, want %+v", ann.Segments, want)
	}
	if got := ann.Behaviors(); !slices.Equal(got, []string{"attack", "other"}) {
		t.Errorf("Behaviors() = %v, want [attack other]", got)
	}
}

func TestParseIgnoresSegmentsOutsideTable(t *testing.T) {
	// Segment-shaped lines before the configuration block are not parsed.
	input := "1 10 walk\nConfiguration file\nwalk w\n"

	_, err := Parse(strings.NewReader(input))
	if !mterrors.IsKind(err, mterrors.KindNoSegmentsFound) {
		t.Errorf("Parse() error = %v, want no segments found", err)
	}
}

func TestParseNoSegments(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"legend only", "Configuration file\nwalk w\nrest r\nS1: start end type\n----\n"},
		{"negative frames", "Configuration file\nS1: start end type\n-1 5 walk\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			if !mterrors.IsKind(err, mterrors.KindNoSegmentsFound) {
				t.Errorf("Parse() error = %v, want no segments found", err)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mouse1.txt")
	if err := os.WriteFile(path, []byte(sampleAnnotation), 0o644); err != nil {
		t.Fatal(err)
	}

	ann, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(ann.Segments) != 2 {
		t.Errorf("got %d segments, want 2", len(ann.Segments))
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.txt")); !mterrors.IsKind(err, mterrors.KindPath) {
		t.Errorf("ParseFile(missing) error = %v, want path error", err)
	}

	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("Configuration file\nwalk w\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = ParseFile(empty)
	if !mterrors.IsKind(err, mterrors.KindNoSegmentsFound) || !strings.Contains(err.Error(), empty) {
		t.Errorf("ParseFile(empty) error = %v, want no segments naming the file", err)
	}
}
