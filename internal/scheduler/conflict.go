package scheduler

import (
	"fmt"
	"slices"
	"time"
)

// Interval is a half-open time range [Start, End) owned by a slot.
type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether a and b share any instant. Touching endpoints do
// not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Conflict details an existing interval that collides with a candidate.
type Conflict struct {
	WithID string
	Start  time.Time
	End    time.Time
}

// DetectConflicts returns every existing interval overlapping candidate,
// ordered by start time. An interval with the candidate's own ID is ignored.
func DetectConflicts(existing []Interval, candidate Interval) []Conflict {
	var conflicts []Conflict
	for _, other := range existing {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if Overlaps(other, candidate) {
			conflicts = append(conflicts, Conflict{WithID: other.ID, Start: other.Start, End: other.End})
		}
	}
	slices.SortFunc(conflicts, func(a, b Conflict) int {
		return a.Start.Compare(b.Start)
	})
	return conflicts
}

// PairError names two overlapping intervals found by VerifyDisjoint.
type PairError struct {
	First  Interval
	Second Interval
}

func (e *PairError) Error() string {
	return fmt.Sprintf("scheduler: interval %s [%s, %s) overlaps %s [%s, %s)",
		e.First.ID, e.First.Start.Format(time.RFC3339), e.First.End.Format(time.RFC3339),
		e.Second.ID, e.Second.Start.Format(time.RFC3339), e.Second.End.Format(time.RFC3339))
}

// VerifyDisjoint checks that no two intervals overlap. It returns a
// *PairError for the first overlapping pair in start order.
func VerifyDisjoint(intervals []Interval) error {
	sorted := slices.Clone(intervals)
	slices.SortFunc(sorted, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})

	if len(sorted) < 2 {
		return nil
	}
	// After sorting, any overlap involves the interval reaching furthest so far.
	widest := sorted[0]
	for _, next := range sorted[1:] {
		if Overlaps(widest, next) {
			return &PairError{First: widest, Second: next}
		}
		if next.End.After(widest.End) {
			widest = next
		}
	}
	return nil
}
