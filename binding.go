package mailmerge

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// MissingFieldsError reports placeholder names that have no value.
// Missing is sorted and free of duplicates.
type MissingFieldsError struct {
	Missing []string
}

func newMissingFieldsError(names []string) *MissingFieldsError {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &MissingFieldsError{Missing: slices.Sorted(maps.Keys(set))}
}

func (e *MissingFieldsError) Error() string {
	quoted := make([]string, len(e.Missing))
	for i, n := range e.Missing {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("%s: %s", ErrMissingFields, strings.Join(quoted, ", "))
}

// Is makes errors.Is(err, ErrMissingFields) hold.
func (e *MissingFieldsError) Is(target error) bool { return target == ErrMissingFields }

// ValueCountMismatchError reports an ordered row that is too short for the
// positions a [FieldBinding] refers to.
type ValueCountMismatchError struct {
	Want int
	Got  int
}

func (e *ValueCountMismatchError) Error() string {
	return fmt.Sprintf("%s: need at least %d values, got %d", ErrValueCount, e.Want, e.Got)
}

// Is makes errors.Is(err, ErrValueCount) hold.
func (e *ValueCountMismatchError) Is(target error) bool { return target == ErrValueCount }

// Validate checks that every name in required is present in available.
// It returns a *MissingFieldsError listing the absent names otherwise.
func Validate(required, available []string) error {
	have := make(map[string]struct{}, len(available))
	for _, n := range available {
		have[n] = struct{}{}
	}
	var missing []string
	for _, n := range required {
		if _, ok := have[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return newMissingFieldsError(missing)
	}
	return nil
}

// FieldBinding maps each placeholder occurrence to the position of its value
// in a declared field ordering. It is immutable once built.
type FieldBinding struct {
	positions []int
	width     int
}

// Resolve builds a FieldBinding for occurrences (template order, repeats
// included) against declared. If declared repeats a name the last position
// wins. A name absent from declared yields a *MissingFieldsError.
func Resolve(occurrences, declared []string) (*FieldBinding, error) {
	index := make(map[string]int, len(declared))
	for i, n := range declared {
		index[n] = i
	}
	fb := &FieldBinding{positions: make([]int, len(occurrences))}
	var missing []string
	for i, n := range occurrences {
		pos, ok := index[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		fb.positions[i] = pos
		fb.width = max(fb.width, pos+1)
	}
	if len(missing) > 0 {
		return nil, newMissingFieldsError(missing)
	}
	return fb, nil
}

// Positions returns a copy of the value position for each occurrence.
func (fb *FieldBinding) Positions() []int {
	out := make([]int, len(fb.positions))
	copy(out, fb.positions)
	return out
}

// Width returns the minimum number of values a row must carry: one past the
// highest referenced position.
func (fb *FieldBinding) Width() int { return fb.width }

func (fb *FieldBinding) check(values []string) error {
	if len(values) < fb.width {
		return &ValueCountMismatchError{Want: fb.width, Got: len(values)}
	}
	return nil
}
