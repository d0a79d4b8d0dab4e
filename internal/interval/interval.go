// Package interval holds per-subject enter/exit frame marks and validates
// them into an ordered, non-overlapping sequence of frame intervals.
//
// Frames are 1-based and both endpoints are inclusive.
package interval

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

// Sentinel errors for editing a Set.
var (
	// ErrAlreadyMarked indicates the endpoint was already recorded for the subject.
	ErrAlreadyMarked = errors.New("already marked")

	// ErrUnknownSubject indicates the subject has no entry in the set.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrEmptyName indicates an empty subject name.
	ErrEmptyName = errors.New("subject name must not be empty")
)

// Marks is the possibly-incomplete enter/exit pair for one subject.
// A nil endpoint has not been marked.
type Marks struct {
	Enter *int
	Exit  *int
}

// Frame returns a pointer to n for building Marks literals.
func Frame(n int) *int {
	return &n
}

// Complete reports whether both endpoints are marked.
func (m Marks) Complete() bool {
	return m.Enter != nil && m.Exit != nil
}

func (m Marks) clone() Marks {
	var c Marks
	if m.Enter != nil {
		c.Enter = Frame(*m.Enter)
	}
	if m.Exit != nil {
		c.Exit = Frame(*m.Exit)
	}
	return c
}

// Interval is one subject's validated presence window.
type Interval struct {
	Name  string
	Start int
	End   int
}

// Frames returns the number of frames covered, counting both endpoints.
func (iv Interval) Frames() int {
	return iv.End - iv.Start + 1
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s(%d-%d)", iv.Name, iv.Start, iv.End)
}

// Set is an insertion-ordered collection of subject marks keyed by name.
// The zero value is not usable; call NewSet.
type Set struct {
	order []string
	marks map[string]Marks
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{marks: make(map[string]Marks)}
}

// Len returns the number of subjects.
func (s *Set) Len() int {
	return len(s.order)
}

// Names returns subject names in insertion order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// Get returns the marks recorded for name.
func (s *Set) Get(name string) (Marks, bool) {
	m, ok := s.marks[name]
	return m, ok
}

// Put records marks for name, overwriting any previous entry while keeping
// the subject's original position.
func (s *Set) Put(name string, m Marks) {
	if _, ok := s.marks[name]; !ok {
		s.order = append(s.order, name)
	}
	s.marks[name] = m.clone()
}

// MarkEnter records the enter frame for name. It refuses to overwrite an
// existing enter frame.
func (s *Set) MarkEnter(name string, frame int) error {
	if name == "" {
		return ErrEmptyName
	}
	m := s.marks[name]
	if m.Enter != nil {
		return fmt.Errorf("%w: enter already marked for %s", ErrAlreadyMarked, name)
	}
	m.Enter = Frame(frame)
	s.Put(name, m)
	return nil
}

// MarkExit records the exit frame for name. It refuses to overwrite an
// existing exit frame.
func (s *Set) MarkExit(name string, frame int) error {
	if name == "" {
		return ErrEmptyName
	}
	m := s.marks[name]
	if m.Exit != nil {
		return fmt.Errorf("%w: exit already marked for %s", ErrAlreadyMarked, name)
	}
	m.Exit = Frame(frame)
	s.Put(name, m)
	return nil
}

// Pending returns subjects that have an enter frame but no exit frame.
func (s *Set) Pending() []string {
	var names []string
	for _, name := range s.order {
		m := s.marks[name]
		if m.Enter != nil && m.Exit == nil {
			names = append(names, name)
		}
	}
	return names
}

// Delete removes name and reports whether it was present.
func (s *Set) Delete(name string) bool {
	if _, ok := s.marks[name]; !ok {
		return false
	}
	delete(s.marks, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true
}

// Duplicate copies name's marks to the first free name of the form
// name_copy, name_copy2, name_copy3, ... and returns the new name.
func (s *Set) Duplicate(name string) (string, error) {
	m, ok := s.marks[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSubject, name)
	}
	candidate := name + "_copy"
	for i := 2; ; i++ {
		if _, taken := s.marks[candidate]; !taken {
			break
		}
		candidate = fmt.Sprintf("%s_copy%d", name, i)
	}
	s.Put(candidate, m)
	return candidate, nil
}

// Merge overlays other onto s. Subjects present in both take other's marks.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		s.Put(name, other.marks[name])
	}
}

// Clear removes every subject.
func (s *Set) Clear() {
	s.order = nil
	s.marks = make(map[string]Marks)
}

// Validate turns s into intervals sorted by start frame.
//
// Every subject must have both endpoints (IncompleteAnnotation); this is
// checked across the whole set before any subject's order, so an incomplete
// subject always wins. Then each exit must be no earlier than its enter
// (InvalidOrder), in insertion order. The intervals are stably sorted by
// start frame and each must begin strictly after the previous one ends, so
// touching boundaries fail with OverlappingIntervals. A nil set is an
// IncompleteAnnotation error.
func Validate(s *Set) ([]Interval, error) {
	if s == nil {
		return nil, mterrors.New(mterrors.KindIncompleteAnnotation, "no interval set to validate")
	}

	for _, name := range s.order {
		if !s.marks[name].Complete() {
			return nil, mterrors.NewIncompleteAnnotationError(name)
		}
	}

	intervals := make([]Interval, 0, len(s.order))
	for _, name := range s.order {
		m := s.marks[name]
		if *m.Exit < *m.Enter {
			return nil, mterrors.NewInvalidOrderError(name, *m.Enter, *m.Exit)
		}
		intervals = append(intervals, Interval{Name: name, Start: *m.Enter, End: *m.Exit})
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start < intervals[j].Start
	})

	for i := 0; i+1 < len(intervals); i++ {
		cur, next := intervals[i], intervals[i+1]
		if next.Start <= cur.End {
			return nil, mterrors.NewOverlappingIntervalsError(cur.Name, next.Name, next.Start, cur.End)
		}
	}

	return intervals, nil
}

// FromMap builds a Set from complete enter/exit pairs, ordering subjects by name.
// Useful where the caller has no meaningful insertion order.
func FromMap(pairs map[string][2]int) *Set {
	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	s := NewSet()
	for _, name := range names {
		p := pairs[name]
		s.Put(name, Marks{Enter: Frame(p[0]), Exit: Frame(p[1])})
	}
	return s
}
