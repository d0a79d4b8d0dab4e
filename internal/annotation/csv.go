// Package annotation imports and exports interval annotations as CSV.
//
// Two layouts are understood. The single-file form has one row per subject:
//
//	intruder,enter,exit
//	MouseA,100,200
//
// The multi-file form has one row per video and a pair of columns per subject:
//
//	file_name,MouseA_in,MouseA_out,MouseB_in,MouseB_out
//	cage1.mp4,100,200,250,300
//
// Empty cells leave the corresponding endpoint unmarked.
package annotation

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	mterrors "github.com/five82/mousetrap/internal/errors"
	"github.com/five82/mousetrap/internal/interval"
	"github.com/five82/mousetrap/internal/util"
)

// Column names and suffixes.
const (
	ColumnIntruder = "intruder"
	ColumnEnter    = "enter"
	ColumnExit     = "exit"
	ColumnFileName = "file_name"
	SuffixIn       = "_in"
	SuffixOut      = "_out"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Form identifies a CSV annotation layout.
type Form int

const (
	// FormSingle is the intruder,enter,exit layout.
	FormSingle Form = iota
	// FormMulti is the file_name plus <name>_in/<name>_out layout.
	FormMulti
)

func (f Form) String() string {
	if f == FormMulti {
		return "multi-file"
	}
	return "single-file"
}

// Mapping holds per-video annotation sets in file order.
type Mapping struct {
	order []string
	sets  map[string]*interval.Set
}

// Len returns the number of videos annotated.
func (m *Mapping) Len() int {
	return len(m.order)
}

// Files returns the file_name values in file order.
func (m *Mapping) Files() []string {
	return slices.Clone(m.order)
}

// Get returns the set stored under the exact file_name value.
func (m *Mapping) Get(fileName string) (*interval.Set, bool) {
	s, ok := m.sets[fileName]
	return s, ok
}

// Lookup finds the annotations for a video path. An entry matching the
// video's base name wins; otherwise entries are matched by file stem.
func (m *Mapping) Lookup(videoPath string) (*interval.Set, bool) {
	base := filepath.Base(videoPath)
	if s, ok := m.sets[base]; ok {
		return s, true
	}
	stem := util.GetFileStem(videoPath)
	for _, key := range m.order {
		if key == stem || util.GetFileStem(key) == stem {
			return m.sets[key], true
		}
	}
	return nil, false
}

// Sniff reports which layout a header row describes.
func Sniff(header []string) (Form, error) {
	cols := cleanHeader(header)
	if slices.Contains(cols, ColumnFileName) {
		return FormMulti, nil
	}
	if slices.Contains(cols, ColumnIntruder) {
		return FormSingle, nil
	}
	return 0, mterrors.New(mterrors.KindCSVSchema,
		fmt.Sprintf("CSV must include a '%s' or '%s' column; found headers: %s",
			ColumnFileName, ColumnIntruder, strings.Join(cols, ", ")))
}

// SniffFile reads the header of a CSV file and reports its layout.
func SniffFile(path string) (Form, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, mterrors.NewIOError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	header, err := newReader(f).Read()
	if err != nil {
		return 0, mterrors.Wrap(mterrors.KindCSVSchema, fmt.Sprintf("failed to read header of %s", path), err)
	}
	return Sniff(header)
}

// ReadSingle parses the single-file form.
func ReadSingle(r io.Reader) (*interval.Set, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, mterrors.Wrap(mterrors.KindCSVSchema, "failed to read CSV header", err)
	}
	cols, err := singleSchema(header)
	if err != nil {
		return nil, err
	}

	set := interval.NewSet()
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mterrors.Wrap(mterrors.KindParse, fmt.Sprintf("line %d", line), err)
		}

		name := cell(record, cols[ColumnIntruder])
		if name == "" {
			continue
		}
		var marks interval.Marks
		if marks.Enter, err = frameCell(record, cols[ColumnEnter], line, ColumnEnter); err != nil {
			return nil, err
		}
		if marks.Exit, err = frameCell(record, cols[ColumnExit], line, ColumnExit); err != nil {
			return nil, err
		}
		set.Put(name, marks)
	}
	return set, nil
}

// ReadSingleFile parses a single-file form CSV from disk.
func ReadSingleFile(path string) (*interval.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mterrors.NewIOError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return ReadSingle(f)
}

// subjectColumns locates a subject's enter and exit columns.
type subjectColumns struct {
	name string
	in   int
	out  int
}

// ReadMulti parses the multi-file form.
func ReadMulti(r io.Reader) (*Mapping, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, mterrors.Wrap(mterrors.KindCSVSchema, "failed to read CSV header", err)
	}
	fileCol, subjects, err := multiSchema(header)
	if err != nil {
		return nil, err
	}

	m := &Mapping{sets: make(map[string]*interval.Set)}
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mterrors.Wrap(mterrors.KindParse, fmt.Sprintf("line %d", line), err)
		}

		fileName := cell(record, fileCol)
		if fileName == "" {
			continue
		}

		set := interval.NewSet()
		for _, sc := range subjects {
			var marks interval.Marks
			if marks.Enter, err = frameCell(record, sc.in, line, sc.name+SuffixIn); err != nil {
				return nil, err
			}
			if marks.Exit, err = frameCell(record, sc.out, line, sc.name+SuffixOut); err != nil {
				return nil, err
			}
			if marks.Enter == nil && marks.Exit == nil {
				continue
			}
			set.Put(sc.name, marks)
		}

		if _, seen := m.sets[fileName]; !seen {
			m.order = append(m.order, fileName)
		}
		m.sets[fileName] = set
	}
	return m, nil
}

// ReadMultiFile parses a multi-file form CSV from disk.
func ReadMultiFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mterrors.NewIOError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()
	return ReadMulti(f)
}

// WriteSingle writes set in the single-file form. Unmarked endpoints are
// written as empty cells.
func WriteSingle(w io.Writer, set *interval.Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnIntruder, ColumnEnter, ColumnExit}); err != nil {
		return err
	}
	for _, name := range set.Names() {
		m, _ := set.Get(name)
		if err := cw.Write([]string{name, formatFrame(m.Enter), formatFrame(m.Exit)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func singleSchema(header []string) (map[string]int, error) {
	cols := cleanHeader(header)
	index := make(map[string]int, len(cols))
	var unknown, duplicate []string
	for i, col := range cols {
		switch col {
		case ColumnIntruder, ColumnEnter, ColumnExit:
			if _, ok := index[col]; ok {
				duplicate = append(duplicate, col)
				continue
			}
			index[col] = i
		default:
			unknown = append(unknown, col)
		}
	}

	var missing []string
	for _, want := range []string{ColumnIntruder, ColumnEnter, ColumnExit} {
		if _, ok := index[want]; !ok {
			missing = append(missing, want)
		}
	}

	if len(missing) > 0 || len(unknown) > 0 || len(duplicate) > 0 {
		return nil, schemaError("intruder,enter,exit", cols, missing, unknown, duplicate)
	}
	return index, nil
}

func multiSchema(header []string) (int, []subjectColumns, error) {
	cols := cleanHeader(header)
	fileCol := -1
	bySubject := make(map[string]*subjectColumns)
	var subjects []*subjectColumns
	var unknown, duplicate []string

	subject := func(name string) *subjectColumns {
		sc, ok := bySubject[name]
		if !ok {
			sc = &subjectColumns{name: name, in: -1, out: -1}
			bySubject[name] = sc
			subjects = append(subjects, sc)
		}
		return sc
	}

	for i, col := range cols {
		switch {
		case col == ColumnFileName:
			if fileCol >= 0 {
				duplicate = append(duplicate, col)
				continue
			}
			fileCol = i
		case strings.HasSuffix(col, SuffixIn) && len(col) > len(SuffixIn):
			sc := subject(strings.TrimSuffix(col, SuffixIn))
			if sc.in >= 0 {
				duplicate = append(duplicate, col)
				continue
			}
			sc.in = i
		case strings.HasSuffix(col, SuffixOut) && len(col) > len(SuffixOut):
			sc := subject(strings.TrimSuffix(col, SuffixOut))
			if sc.out >= 0 {
				duplicate = append(duplicate, col)
				continue
			}
			sc.out = i
		default:
			unknown = append(unknown, col)
		}
	}

	var missing []string
	if fileCol < 0 {
		missing = append(missing, ColumnFileName)
	}
	result := make([]subjectColumns, 0, len(subjects))
	for _, sc := range subjects {
		if sc.in < 0 {
			missing = append(missing, sc.name+SuffixIn)
		}
		if sc.out < 0 {
			missing = append(missing, sc.name+SuffixOut)
		}
		result = append(result, *sc)
	}

	if len(missing) > 0 || len(unknown) > 0 || len(duplicate) > 0 {
		return 0, nil, schemaError("file_name plus <name>_in/<name>_out pairs", cols, missing, unknown, duplicate)
	}
	return fileCol, result, nil
}

func schemaError(expected string, found, missing, unknown, duplicate []string) error {
	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing columns: "+strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		problems = append(problems, "unrecognized columns: "+strings.Join(unknown, ", "))
	}
	if len(duplicate) > 0 {
		problems = append(problems, "duplicate columns: "+strings.Join(duplicate, ", "))
	}
	return mterrors.New(mterrors.KindCSVSchema,
		fmt.Sprintf("expected %s; %s; found headers: %s", expected, strings.Join(problems, "; "), strings.Join(found, ", ")))
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(skipBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func cleanHeader(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(strings.TrimPrefix(h, string(utf8BOM)))
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func frameCell(record []string, idx, line int, column string) (*int, error) {
	v := cell(record, idx)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, mterrors.New(mterrors.KindParse,
			fmt.Sprintf("line %d, column %s: %q is not an integer frame number", line, column, v))
	}
	if n < 1 {
		return nil, mterrors.New(mterrors.KindParse,
			fmt.Sprintf("line %d, column %s: frame numbers start at 1, got %d", line, column, n))
	}
	return &n, nil
}

func formatFrame(f *int) string {
	if f == nil {
		return ""
	}
	return strconv.Itoa(*f)
}
