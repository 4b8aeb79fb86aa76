package schedule

import (
	"sync"
	"time"
)

// Interval is a weekly slot [Start, End) on Day. ID is empty for entries that
// are not stored yet.
type Interval struct {
	ID    string
	Day   time.Weekday
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether the half-open ranges of a and b intersect on the
// same day. Touching endpoints do not overlap.
func (a Interval) Overlaps(b Interval) bool {
	return a.Day == b.Day && a.Start < b.End && a.End > b.Start
}

// FindConflict returns the first entry of existing, in input order, that
// overlaps candidate. An entry with the candidate's own non-empty ID is
// skipped so an edit never conflicts with the version it replaces.
func FindConflict(candidate Interval, existing []Interval) (Interval, bool) {
	for _, e := range existing {
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return Interval{}, false
}

// FindAllConflicts returns every entry of existing that overlaps candidate,
// with the same self-exclusion rule as FindConflict.
func FindAllConflicts(candidate Interval, existing []Interval) []Interval {
	var out []Interval
	for _, e := range existing {
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		if candidate.Overlaps(e) {
			out = append(out, e)
		}
	}
	return out
}

// Conflict pairs a rejected candidate with the first existing entry it hit.
type Conflict struct {
	Candidate Interval
	With      Interval
}

// Partition is the result of PartitionByConflict. Both slices keep the
// candidates' input order.
type Partition struct {
	Conflicting []Conflict
	Clean       []Interval
}

// PartitionByConflict checks every candidate on its own against existing.
// Candidates are never compared with each other, so the outcome does not
// depend on their order.
func PartitionByConflict(candidates, existing []Interval) Partition {
	type verdict struct {
		with     Interval
		conflict bool
	}

	verdicts := make([]verdict, len(candidates))
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			with, ok := FindConflict(candidates[i], existing)
			verdicts[i] = verdict{with: with, conflict: ok}
		}(i)
	}
	wg.Wait()

	var p Partition
	for i, v := range verdicts {
		if v.conflict {
			p.Conflicting = append(p.Conflicting, Conflict{Candidate: candidates[i], With: v.with})
		} else {
			p.Clean = append(p.Clean, candidates[i])
		}
	}
	return p
}
