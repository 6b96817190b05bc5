package board

import (
	"cmp"
	"slices"

	"taskboard/internal/models/task"
)

// RankStep is the gap between neighbours after a rebalance and when appending.
const RankStep = 1024.0

// rankBetween returns a rank strictly between lo and hi. hasLo/hasHi mark open ends.
// ok is false when no representable value separates the neighbours.
func rankBetween(lo, hi float64, hasLo, hasHi bool) (float64, bool) {
	switch {
	case !hasLo && !hasHi:
		return RankStep, true
	case !hasLo:
		r := hi - RankStep
		return r, r < hi
	case !hasHi:
		r := lo + RankStep
		return r, r > lo
	}
	if !(lo < hi) {
		return 0, false
	}
	mid := lo + (hi-lo)/2
	if mid <= lo || mid >= hi {
		return 0, false
	}
	return mid, true
}

// rankAt computes the rank for inserting at index into column (which must not contain the
// moving task).
func rankAt(column []task.Task, index int) (float64, bool) {
	if index < 0 {
		index = 0
	}
	if index > len(column) {
		index = len(column)
	}
	var lo, hi float64
	hasLo, hasHi := index > 0, index < len(column)
	if hasLo {
		lo = column[index-1].Rank
	}
	if hasHi {
		hi = column[index].Rank
	}
	return rankBetween(lo, hi, hasLo, hasHi)
}

// Rebalance assigns evenly spaced ranks following the order of column and returns the
// tasks whose rank changed.
func Rebalance(column []task.Task) []task.Task {
	var changed []task.Task
	for i := range column {
		r := RankStep * float64(i+1)
		if column[i].Rank != r {
			column[i].Rank = r
			changed = append(changed, column[i])
		}
	}
	return changed
}

// SortByRank orders tasks for display: board category order, then rank, then creation time.
// The sort is stable so equal keys keep the store's listing order.
func SortByRank(tasks []task.Task) {
	slices.SortStableFunc(tasks, func(a, b task.Task) int {
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
