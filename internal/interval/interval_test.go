package interval

import (
	"errors"
	"testing"
	"time"

	mterrors "github.com/five82/mousetrap/internal/errors"
)

func setOf(t *testing.T, entries ...any) *Set {
	t.Helper()
	s := NewSet()
	for i := 0; i < len(entries); i += 2 {
		s.Put(entries[i].(string), entries[i+1].(Marks))
	}
	return s
}

func both(enter, exit int) Marks {
	return Marks{Enter: Frame(enter), Exit: Frame(exit)}
}

func TestValidateRoundTrip(t *testing.T) {
	s := setOf(t, "MouseB", both(250, 300), "MouseA", both(100, 200))

	got, err := Validate(s)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := []Interval{{"MouseA", 100, 200}, {"MouseB", 250, 300}}
	if len(got) != len(want) {
		t.Fatalf("Validate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Validate()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name     string
		set      *Set
		wantKind mterrors.ErrorKind
		subjects []string
	}{
		{
			name:     "missing exit",
			set:      setOf(t, "A", Marks{Enter: Frame(10)}),
			wantKind: mterrors.KindIncompleteAnnotation,
			subjects: []string{"A"},
		},
		{
			name:     "missing enter",
			set:      setOf(t, "A", both(1, 5), "B", Marks{Exit: Frame(20)}),
			wantKind: mterrors.KindIncompleteAnnotation,
			subjects: []string{"B"},
		},
		{
			name:     "incomplete wins over overlap elsewhere",
			set:      setOf(t, "A", both(10, 50), "B", both(40, 60), "C", Marks{}),
			wantKind: mterrors.KindIncompleteAnnotation,
			subjects: []string{"C"},
		},
		{
			name:     "incomplete wins over earlier inverted subject",
			set:      setOf(t, "A", both(60, 50), "B", Marks{Enter: Frame(100)}),
			wantKind: mterrors.KindIncompleteAnnotation,
			subjects: []string{"B"},
		},
		{
			name:     "exit before enter",
			set:      setOf(t, "A", both(60, 50)),
			wantKind: mterrors.KindInvalidOrder,
			subjects: []string{"A"},
		},
		{
			name:     "inverted reported before overlap",
			set:      setOf(t, "A", both(10, 50), "B", both(40, 60), "C", both(90, 80)),
			wantKind: mterrors.KindInvalidOrder,
			subjects: []string{"C"},
		},
		{
			name:     "overlap names both subjects",
			set:      setOf(t, "A", both(10, 50), "B", both(40, 60)),
			wantKind: mterrors.KindOverlappingIntervals,
			subjects: []string{"A", "B"},
		},
		{
			name:     "touching boundary is overlap",
			set:      setOf(t, "A", both(10, 50), "B", both(50, 60)),
			wantKind: mterrors.KindOverlappingIntervals,
			subjects: []string{"A", "B"},
		},
		{
			name:     "overlap detected after sorting",
			set:      setOf(t, "late", both(50, 60), "early", both(10, 55)),
			wantKind: mterrors.KindOverlappingIntervals,
			subjects: []string{"early", "late"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.set)
			if err == nil {
				t.Fatalf("Validate() = %v, want error", got)
			}
			if got != nil {
				t.Errorf("Validate() returned intervals alongside error: %v", got)
			}
			if !mterrors.IsKind(err, tt.wantKind) {
				t.Errorf("Validate() error = %v, want kind %v", err, tt.wantKind)
			}
			subjects := mterrors.Subjects(err)
			if len(subjects) != len(tt.subjects) {
				t.Fatalf("Subjects() = %v, want %v", subjects, tt.subjects)
			}
			for i := range subjects {
				if subjects[i] != tt.subjects[i] {
					t.Errorf("Subjects()[%d] = %q, want %q", i, subjects[i], tt.subjects[i])
				}
			}
		})
	}
}

func TestValidateAcceptsAdjacentFrames(t *testing.T) {
	got, err := Validate(setOf(t, "A", both(10, 49), "B", both(50, 60)))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Validate()) = %d, want 2", len(got))
	}
}

func TestValidateSingleFrameInterval(t *testing.T) {
	got, err := Validate(setOf(t, "A", both(7, 7)))
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got[0].Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", got[0].Frames())
	}
}

func TestValidateStableForEqualStarts(t *testing.T) {
	// Equal starts always overlap, so stability is observed on the
	// intervals that precede the conflict: the first pair reported must
	// follow insertion order.
	_, err := Validate(setOf(t, "second", both(5, 5), "first", both(5, 9)))
	subjects := mterrors.Subjects(err)
	if len(subjects) != 2 || subjects[0] != "second" || subjects[1] != "first" {
		t.Errorf("Subjects() = %v, want [second first]", subjects)
	}
}

func TestValidateDeterministic(t *testing.T) {
	s := setOf(t, "C", both(300, 310), "A", both(1, 2), "B", both(100, 120))
	first, err := Validate(s)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < 10; n++ {
		again, err := Validate(s)
		if err != nil {
			t.Fatal(err)
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("Validate() not deterministic: %v vs %v", first, again)
			}
		}
	}
}

func TestValidateEmpty(t *testing.T) {
	got, err := Validate(NewSet())
	if err != nil || len(got) != 0 {
		t.Errorf("Validate(empty) = %v, %v; want empty, nil", got, err)
	}
	got, err = Validate(nil)
	if got != nil || !mterrors.IsKind(err, mterrors.KindIncompleteAnnotation) {
		t.Errorf("Validate(nil) = %v, %v; want IncompleteAnnotation", got, err)
	}
}

func TestMarkEnterExit(t *testing.T) {
	s := NewSet()
	if err := s.MarkEnter("MouseA", 100); err != nil {
		t.Fatalf("MarkEnter() error = %v", err)
	}
	if err := s.MarkEnter("MouseA", 150); !errors.Is(err, ErrAlreadyMarked) {
		t.Errorf("second MarkEnter() error = %v, want %v", err, ErrAlreadyMarked)
	}

	pending := s.Pending()
	if len(pending) != 1 || pending[0] != "MouseA" {
		t.Errorf("Pending() = %v, want [MouseA]", pending)
	}

	if err := s.MarkExit("MouseA", 200); err != nil {
		t.Fatalf("MarkExit() error = %v", err)
	}
	if err := s.MarkExit("MouseA", 210); !errors.Is(err, ErrAlreadyMarked) {
		t.Errorf("second MarkExit() error = %v, want %v", err, ErrAlreadyMarked)
	}
	if len(s.Pending()) != 0 {
		t.Errorf("Pending() = %v, want empty", s.Pending())
	}

	m, _ := s.Get("MouseA")
	if *m.Enter != 100 || *m.Exit != 200 {
		t.Errorf("Get() = %d-%d, want 100-200", *m.Enter, *m.Exit)
	}

	if err := s.MarkEnter("", 1); !errors.Is(err, ErrEmptyName) {
		t.Errorf("MarkEnter(\"\") error = %v, want %v", err, ErrEmptyName)
	}
}

func TestPutOverwritesInPlace(t *testing.T) {
	s := setOf(t, "A", both(1, 2), "B", both(3, 4))
	s.Put("A", both(10, 20))

	names := s.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Errorf("Names() = %v, want [A B]", names)
	}
	m, _ := s.Get("A")
	if *m.Enter != 10 {
		t.Errorf("Enter = %d, want 10", *m.Enter)
	}
}

func TestPutCopiesMarks(t *testing.T) {
	enter := 5
	s := NewSet()
	s.Put("A", Marks{Enter: &enter})
	enter = 99

	m, _ := s.Get("A")
	if *m.Enter != 5 {
		t.Errorf("Enter = %d, want 5 (Set must not alias caller pointers)", *m.Enter)
	}
}

func TestDuplicate(t *testing.T) {
	s := setOf(t, "A", both(1, 2))

	wantNames := []string{"A_copy", "A_copy2", "A_copy3"}
	for _, want := range wantNames {
		got, err := s.Duplicate("A")
		if err != nil {
			t.Fatalf("Duplicate() error = %v", err)
		}
		if got != want {
			t.Errorf("Duplicate() = %s, want %s", got, want)
		}
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	if _, err := s.Duplicate("missing"); !errors.Is(err, ErrUnknownSubject) {
		t.Errorf("Duplicate(missing) error = %v, want %v", err, ErrUnknownSubject)
	}
}

func TestDeleteAndClear(t *testing.T) {
	s := setOf(t, "A", both(1, 2), "B", both(3, 4), "C", both(5, 6))
	if !s.Delete("B") {
		t.Error("Delete(B) = false, want true")
	}
	if s.Delete("B") {
		t.Error("second Delete(B) = true, want false")
	}
	names := s.Names()
	if len(names) != 2 || names[0] != "A" || names[1] != "C" {
		t.Errorf("Names() = %v, want [A C]", names)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}

func TestMerge(t *testing.T) {
	manual := setOf(t, "A", Marks{Enter: Frame(1)}, "B", both(10, 20))
	imported := setOf(t, "A", both(2, 3), "C", both(30, 40))
	manual.Merge(imported)

	names := manual.Names()
	if len(names) != 3 || names[0] != "A" || names[1] != "B" || names[2] != "C" {
		t.Errorf("Names() = %v, want [A B C]", names)
	}
	m, _ := manual.Get("A")
	if !m.Complete() || *m.Enter != 2 {
		t.Errorf("merged A = %+v, want 2-3", m)
	}
	manual.Merge(nil)
}

func TestFromMap(t *testing.T) {
	s := FromMap(map[string][2]int{"b": {10, 20}, "a": {1, 5}})
	names := s.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v, want [a b]", names)
	}
}

func TestFrameAt(t *testing.T) {
	tests := []struct {
		name     string
		position time.Duration
		fps      float64
		total    int
		want     int
	}{
		{"start", 0, 25, 100, 1},
		{"four seconds", 4 * time.Second, 25, 1000, 101},
		{"just before boundary", 1999 * time.Millisecond, 25, 1000, 50},
		{"clamped to total", 10 * time.Second, 25, 100, 100},
		{"no total", 10 * time.Second, 25, 0, 251},
		{"bad fps", time.Second, 0, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameAt(tt.position, tt.fps, tt.total); got != tt.want {
				t.Errorf("FrameAt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPositionOf(t *testing.T) {
	if got := PositionOf(101, 25); got != 4*time.Second {
		t.Errorf("PositionOf(101, 25) = %v, want 4s", got)
	}
	if got := PositionOf(1, 25); got != 0 {
		t.Errorf("PositionOf(1, 25) = %v, want 0", got)
	}
	if got := FrameAt(PositionOf(57, 30), 30, 0); got != 57 {
		t.Errorf("FrameAt(PositionOf(57)) = %d, want 57", got)
	}
}
