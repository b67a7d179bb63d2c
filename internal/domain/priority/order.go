package priority

import (
	"sort"
	"time"
)

// Ranked is a scored list item. Reference is the timestamp used to break
// ties: creation for evaluator lists, escalation for supervisor lists.
type Ranked struct {
	ID        string
	Score     int
	Reference time.Time
}

// Sort orders items by score descending, oldest reference first among equal
// scores, then by ID so the output is deterministic.
func Sort(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Less reports whether a ranks before b.
func Less(a, b Ranked) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Reference.Equal(b.Reference) {
		return a.Reference.Before(b.Reference)
	}
	return a.ID < b.ID
}
