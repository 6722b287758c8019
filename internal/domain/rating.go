package domain

import "sort"

const (
	MinRating = 1
	MaxRating = 5
)

// LevelPassed reports whether every check in the group was met. A group with
// no checks never passes.
func LevelPassed(g LevelCheckGroup) bool {
	if len(g.Checks) == 0 {
		return false
	}
	for _, c := range g.Checks {
		if !c.Met {
			return false
		}
	}
	return true
}

// ComputeHighestDemonstrated returns the highest passed level number. Gaps are
// allowed: a higher level can pass while a lower one fails. With no passed
// level the rating is 1.
func ComputeHighestDemonstrated(levels []LevelCheckGroup) int {
	if len(levels) == 0 {
		return MinRating
	}

	sorted := make([]LevelCheckGroup, len(levels))
	copy(sorted, levels)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	highest := 0
	for _, lvl := range sorted {
		if LevelPassed(lvl) && lvl.Level > highest {
			highest = lvl.Level
		}
	}
	return ClampRating(highest)
}

func ClampRating(r int) int {
	if r < MinRating {
		return MinRating
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}
