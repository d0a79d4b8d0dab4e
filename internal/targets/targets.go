// Package targets merges per-frame feature tables with behavior label
// columns into classifier training tables.
package targets

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/five82/mousetrap/internal/caltech"
	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/labels"
	"github.com/five82/mousetrap/internal/util"
)

// Table is a CSV table with cells kept as written.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadFeatures loads a feature CSV with one row per frame.
func ReadFeatures(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mterrors.NewPathError(fmt.Sprintf("Features CSV not found: %s", path))
		}
		return nil, mterrors.NewIOError(fmt.Sprintf("opening features CSV %s", path), err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, mterrors.Wrap(mterrors.KindParse, fmt.Sprintf("failed to read features CSV %s", path), err)
	}
	return t, nil
}

// ReadTable reads a header row followed by data rows. Every row must have
// as many cells as the header. An empty input yields an empty table.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}

	t := &Table{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Merge appends one 0/1 column per matrix behavior to the feature table.
// Feature columns keep their order and come first.
func Merge(features *Table, m *labels.Matrix) (*Table, error) {
	if features.Len() == 0 {
		return nil, mterrors.New(mterrors.KindEmptyFeatureTable, "feature table has no rows")
	}
	if features.Len() != m.Rows() {
		return nil, mterrors.New(mterrors.KindRowMismatch,
			fmt.Sprintf("feature table has %d rows but label matrix has %d", features.Len(), m.Rows()))
	}

	behaviors := m.Behaviors()
	out := &Table{
		Header: make([]string, 0, len(features.Header)+len(behaviors)),
		Rows:   make([][]string, features.Len()),
	}
	out.Header = append(out.Header, features.Header...)
	out.Header = append(out.Header, behaviors...)

	for i, row := range features.Rows {
		merged := make([]string, 0, len(row)+len(behaviors))
		merged = append(merged, row...)
		for _, v := range m.Row(i) {
			merged = append(merged, strconv.Itoa(int(v)))
		}
		out.Rows[i] = merged
	}
	return out, nil
}

// WriteCSV writes the table to path, creating parent directories.
func WriteCSV(path string, t *Table) error {
	if err := util.EnsureDirectory(filepath.Dir(path)); err != nil {
		return mterrors.NewIOError(fmt.Sprintf("creating directory for %s", path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return mterrors.NewIOError(fmt.Sprintf("failed to write output CSV %s", path), err)
	}

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return mterrors.NewIOError(fmt.Sprintf("failed to write output CSV %s", path), err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return mterrors.NewIOError(fmt.Sprintf("failed to write output CSV %s", path), err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return mterrors.NewIOError(fmt.Sprintf("failed to write output CSV %s", path), err)
	}
	if err := f.Close(); err != nil {
		return mterrors.NewIOError(fmt.Sprintf("failed to write output CSV %s", path), err)
	}
	return nil
}

// OutputPath returns dir/<feature stem><suffix>.csv.
func OutputPath(featuresPath, dir, suffix string) string {
	return filepath.Join(dir, util.GetFileStem(featuresPath)+suffix+".csv")
}

// Request describes one annotation + features conversion.
type Request struct {
	AnnotationPath string
	FeaturesPath   string
	OutputPath     string
	Selection      labels.Selection
	FrameOffset    int
}

// Summary describes a written targets table.
type Summary struct {
	OutputPath string
	Behaviors  []string
	Frames     int
}

// Message returns the human-readable completion line.
func (s *Summary) Message() string {
	return fmt.Sprintf("Wrote targets CSV with %d behaviors and %d frames to %s", len(s.Behaviors), s.Frames, s.OutputPath)
}

// Converter runs Request conversions.
type Converter struct {
	logger zerolog.Logger
}

// NewConverter creates a Converter.
func NewConverter(logger zerolog.Logger) *Converter {
	return &Converter{logger: logger}
}

// Convert parses the annotation, builds labels sized to the feature table
// and writes the merged table. Progress is reported at 5, 15, 30-99 while
// filling labels, 95 and 100.
func (c *Converter) Convert(ctx context.Context, req Request, progress labels.ProgressFunc) (*Summary, error) {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}
	report(5)

	if !util.FileExists(req.FeaturesPath) {
		return nil, mterrors.NewPathError(fmt.Sprintf("Features CSV not found: %s", req.FeaturesPath))
	}
	if !util.FileExists(req.AnnotationPath) {
		return nil, mterrors.NewPathError(fmt.Sprintf("Annotation file not found: %s", req.AnnotationPath))
	}

	features, err := ReadFeatures(req.FeaturesPath)
	if err != nil {
		return nil, err
	}
	if features.Len() == 0 {
		return nil, mterrors.New(mterrors.KindEmptyFeatureTable, fmt.Sprintf("Features CSV %s has no rows.", req.FeaturesPath))
	}
	report(15)

	if err := ctx.Err(); err != nil {
		return nil, mterrors.Wrap(mterrors.KindCancelled, "label conversion cancelled", err)
	}

	ann, err := caltech.ParseFile(req.AnnotationPath)
	if err != nil {
		return nil, err
	}

	behaviors, err := labels.ResolveBehaviors(ann, req.Selection)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().
		Strs("behaviors", behaviors).
		Int("segments", len(ann.Segments)).
		Int("frames", features.Len()).
		Msg("Building label matrix")

	m, err := labels.Build(features.Len(), ann, behaviors, req.FrameOffset, progress)
	if err != nil {
		return nil, err
	}
	report(95)

	merged, err := Merge(features, m)
	if err != nil {
		return nil, err
	}
	if err := WriteCSV(req.OutputPath, merged); err != nil {
		return nil, err
	}
	report(100)

	s := &Summary{OutputPath: req.OutputPath, Behaviors: behaviors, Frames: features.Len()}
	c.logger.Info().Str("output", req.OutputPath).Int("behaviors", len(behaviors)).Int("frames", s.Frames).Msg("Wrote targets CSV")
	return s, nil
}
