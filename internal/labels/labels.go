// Package labels expands behavior segments into a per-frame 0/1 matrix.
package labels

import (
	"fmt"
	"slices"
	"strings"

	"github.com/five82/mousetrap/internal/caltech"
	"github.com/five82/mousetrap/internal/config"
	mterrors "github.com/five82/mousetrap/internal/errors"
)

// Selection controls which behaviors become matrix columns.
type Selection struct {
	// Include, when non-nil, lists the behaviors to keep. It takes precedence
	// over IncludeAll.
	Include    []string
	IncludeAll bool
	Exclude    []string
}

// DefaultSelection keeps every behavior present except the catch-all ones.
func DefaultSelection() Selection {
	return Selection{
		IncludeAll: true,
		Exclude:    slices.Clone(config.DefaultExcludedBehaviors),
	}
}

// SelectionFromConfig builds a Selection from configuration.
func SelectionFromConfig(cfg *config.Config) Selection {
	return Selection{
		Include:    cfg.IncludedBehaviors,
		IncludeAll: cfg.IncludeAllBehaviors,
		Exclude:    cfg.ExcludedBehaviors,
	}
}

// ResolveBehaviors returns the sorted behaviors that should produce columns.
func ResolveBehaviors(ann *caltech.Annotation, sel Selection) ([]string, error) {
	present := ann.Behaviors()

	var out []string
	switch {
	case sel.Include != nil:
		want := make(map[string]struct{}, len(sel.Include))
		for _, b := range sel.Include {
			want[strings.TrimSpace(b)] = struct{}{}
		}
		for _, b := range present {
			if _, ok := want[b]; ok {
				out = append(out, b)
			}
		}
	case sel.IncludeAll:
		for _, b := range present {
			if !slices.Contains(sel.Exclude, b) {
				out = append(out, b)
			}
		}
	}

	if len(out) == 0 {
		return nil, mterrors.New(mterrors.KindNoBehaviorsSelected, fmt.Sprintf(
			"no behaviors selected for classifier targets; adjust the included behaviors or include all behaviors from the annotation. Behaviors present in this file: %s",
			strings.Join(present, ", ")))
	}
	return out, nil
}

// Matrix is a frame-by-behavior table of 0/1 labels. Rows are 0-based.
type Matrix struct {
	rows      int
	behaviors []string
	index     map[string]int
	cols      [][]uint8
}

// NewMatrix allocates a zero-filled matrix.
func NewMatrix(rows int, behaviors []string) *Matrix {
	m := &Matrix{rows: rows, index: make(map[string]int, len(behaviors))}
	for _, b := range behaviors {
		if _, dup := m.index[b]; dup {
			continue
		}
		m.index[b] = len(m.behaviors)
		m.behaviors = append(m.behaviors, b)
		m.cols = append(m.cols, make([]uint8, rows))
	}
	return m
}

// Rows returns the number of frames.
func (m *Matrix) Rows() int { return m.rows }

// Behaviors returns the column names in order.
func (m *Matrix) Behaviors() []string { return slices.Clone(m.behaviors) }

// Column returns the labels for behavior, or nil when it is not a column.
func (m *Matrix) Column(behavior string) []uint8 {
	i, ok := m.index[behavior]
	if !ok {
		return nil
	}
	return m.cols[i]
}

// At returns the label at row for behavior; 0 for unknown behaviors.
func (m *Matrix) At(row int, behavior string) uint8 {
	col := m.Column(behavior)
	if col == nil || row < 0 || row >= m.rows {
		return 0
	}
	return col[row]
}

// Row returns the labels of one frame in column order.
func (m *Matrix) Row(row int) []uint8 {
	out := make([]uint8, len(m.cols))
	for i, col := range m.cols {
		out[i] = col[row]
	}
	return out
}

// Fill sets rows StartFrame-offset through EndFrame-offset to 1 for the
// segment's behavior. Segments for behaviors that are not columns are
// ignored. A range outside the matrix fails without modifying it.
func (m *Matrix) Fill(seg caltech.Segment, offset int) error {
	col := m.Column(seg.Behavior)
	if col == nil {
		return nil
	}

	start := seg.StartFrame - offset
	end := seg.EndFrame - offset
	if start < 0 || end >= m.rows {
		return mterrors.NewSegmentOutOfBoundsError(seg.Behavior, seg.StartFrame, seg.EndFrame, offset, m.rows)
	}

	for i := start; i <= end; i++ {
		col[i] = 1
	}
	return nil
}

// ProgressFunc receives a completion percentage.
type ProgressFunc func(percent int)

// Build creates an nFrames-row matrix over behaviors and fills it from the
// annotation's segments. Progress runs from 30 to 99 while filling.
func Build(nFrames int, ann *caltech.Annotation, behaviors []string, frameOffset int, progress ProgressFunc) (*Matrix, error) {
	if len(behaviors) == 0 {
		return nil, mterrors.New(mterrors.KindNoBehaviorsSelected, "no behaviors provided to build the label matrix")
	}

	m := NewMatrix(nFrames, behaviors)
	total := len(ann.Segments)
	for i, seg := range ann.Segments {
		if m.Column(seg.Behavior) == nil {
			continue
		}
		if err := m.Fill(seg, frameOffset); err != nil {
			return nil, err
		}
		if progress != nil && total > 0 {
			progress(min(30+60*(i+1)/total, 99))
		}
	}
	return m, nil
}
