// Package caltech parses Caltech Behavior Annotator text exports.
package caltech

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

const configMarker = "Configuration file"

// Segment is one labeled bout. Frames are 1-based as written in the file.
type Segment struct {
	StartFrame int
	EndFrame   int
	Behavior   string
}

// Annotation is a parsed annotation file.
type Annotation struct {
	Codes    map[string]string // behavior name -> single-character key
	Segments []Segment
}

// Behaviors returns the distinct behaviors that have at least one segment, sorted.
func (a *Annotation) Behaviors() []string {
	seen := make(map[string]struct{}, len(a.Segments))
	var out []string
	for _, seg := range a.Segments {
		if _, ok := seen[seg.Behavior]; ok {
			continue
		}
		seen[seg.Behavior] = struct{}{}
		out = append(out, seg.Behavior)
	}
	slices.Sort(out)
	return out
}

type parseState int

const (
	stateScanning parseState = iota
	stateConfig
	stateSegments
)

// Parse reads an annotation from r. The parse is purely syntactic; frame
// ranges are not checked. A file without any segment lines is an error.
func Parse(r io.Reader) (*Annotation, error) {
	ann := &Annotation{Codes: make(map[string]string)}
	state := stateScanning

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, configMarker) {
			state = stateConfig
			continue
		}

		switch state {
		case stateConfig:
			if isSegmentHeader(line) {
				state = stateSegments
				continue
			}
			if fields := strings.Fields(line); len(fields) == 2 {
				ann.Codes[fields[0]] = fields[1]
			}

		case stateSegments:
			if strings.HasPrefix(line, "S") && strings.Contains(line, ":") {
				continue
			}
			if strings.Trim(line, "-") == "" {
				continue
			}
			if seg, ok := parseSegment(line); ok {
				ann.Segments = append(ann.Segments, seg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, mterrors.NewIOError("reading annotation", err)
	}

	if len(ann.Segments) == 0 {
		return nil, mterrors.New(mterrors.KindNoSegmentsFound, "no behavior segments found")
	}
	return ann, nil
}

// ParseFile parses the annotation file at path.
func ParseFile(path string) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mterrors.NewPathError(fmt.Sprintf("annotation file not found: %s", path))
		}
		return nil, mterrors.NewIOError(fmt.Sprintf("opening annotation %s", path), err)
	}
	defer f.Close()

	ann, err := Parse(f)
	if mterrors.IsKind(err, mterrors.KindNoSegmentsFound) {
		return nil, mterrors.New(mterrors.KindNoSegmentsFound, fmt.Sprintf("no behavior segments found in %s", path))
	}
	return ann, err
}

// isSegmentHeader matches the table header, e.g. "S1: start    end     type".
func isSegmentHeader(line string) bool {
	return strings.HasPrefix(line, "S") && strings.Contains(line, "start") && strings.Contains(line, "end")
}

func parseSegment(line string) (Segment, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 || !isDigits(fields[0]) || !isDigits(fields[1]) {
		return Segment{}, false
	}
	start, err := strconv.Atoi(fields[0])
	if err != nil {
		return Segment{}, false
	}
	end, err := strconv.Atoi(fields[1])
	if err != nil {
		return Segment{}, false
	}
	return Segment{StartFrame: start, EndFrame: end, Behavior: fields[2]}, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
