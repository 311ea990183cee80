package models

import (
	"slices"
	"strings"
)

// SongCount is a song title with the number of setlists it appeared in.
type SongCount struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

// RankedSetlist is a list of songs ordered by descending count.
type RankedSetlist []SongCount

// Titles returns the song titles in rank order.
func (r RankedSetlist) Titles() []string {
	titles := make([]string, len(r))
	for i, s := range r {
		titles[i] = s.Title
	}
	return titles
}

// SongFrequencyTable counts song occurrences while remembering the order titles were first seen.
//
// Titles are compared exactly after trimming whitespace; near-duplicates are not merged.
type SongFrequencyTable struct {
	order  []string
	counts map[string]int
}

// NewSongFrequencyTable returns an empty table.
func NewSongFrequencyTable() *SongFrequencyTable {
	return &SongFrequencyTable{counts: make(map[string]int)}
}

// Add counts each title once. Blank titles are ignored.
func (t *SongFrequencyTable) Add(titles ...string) {
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		if _, seen := t.counts[title]; !seen {
			t.order = append(t.order, title)
		}
		t.counts[title]++
	}
}

// Len is the number of distinct titles.
func (t *SongFrequencyTable) Len() int { return len(t.order) }

// Count returns how many times title was added.
func (t *SongFrequencyTable) Count(title string) int { return t.counts[strings.TrimSpace(title)] }

// Rank sorts titles by descending count, keeping first-seen order among equal counts,
// and truncates to topN. A topN of zero or less keeps every title.
func (t *SongFrequencyTable) Rank(topN int) RankedSetlist {
	ranked := make(RankedSetlist, len(t.order))
	for i, title := range t.order {
		ranked[i] = SongCount{Title: title, Count: t.counts[title]}
	}

	slices.SortStableFunc(ranked, func(a, b SongCount) int { return b.Count - a.Count })

	if topN > 0 && topN < len(ranked) {
		ranked = ranked[:topN]
	}
	return ranked
}
