// Package frameindex provides ordinal and keyframe lookups over a stream's
// index entries.
package frameindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/framegrab/pkg/ports"
)

// ErrNotFound is returned when an ordinal is outside the index.
var ErrNotFound = errors.New("frameindex: entry not found")

// Entry is an index entry together with its logical frame ordinal.
type Entry struct {
	ports.IndexEntry
	Ordinal int
}

// Index is an immutable, timestamp-ordered view over a stream's index entries.
type Index struct {
	entries []ports.IndexEntry
}

// New builds an Index. The entries are copied and ordered by timestamp, then by
// byte offset so that equal timestamps resolve to container physical order.
func New(entries []ports.IndexEntry) *Index {
	sorted := make([]ports.IndexEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].Offset < sorted[j].Offset
	})
	return &Index{entries: sorted}
}

// Len returns the number of indexed entries.
func (x *Index) Len() int {
	return len(x.entries)
}

// EntryAt returns the entry for a logical frame ordinal.
func (x *Index) EntryAt(ordinal int) (Entry, error) {
	if ordinal < 0 || ordinal >= len(x.entries) {
		return Entry{}, fmt.Errorf("%w: ordinal %d, %d entries", ErrNotFound, ordinal, len(x.entries))
	}
	return Entry{IndexEntry: x.entries[ordinal], Ordinal: ordinal}, nil
}

// NearestKeyframeBefore returns the keyframe with the greatest timestamp <= ts.
// When no keyframe precedes ts the first entry is returned, so decoding
// degrades to a linear scan from the start. An empty index returns the zero Entry.
func (x *Index) NearestKeyframeBefore(ts int64) Entry {
	if len(x.entries) == 0 {
		return Entry{}
	}

	// position of the last entry with Timestamp <= ts
	pos := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].Timestamp > ts
	}) - 1

	for i := pos; i >= 0; i-- {
		if !x.entries[i].Keyframe {
			continue
		}
		// prefer the lowest-offset keyframe sharing this timestamp
		best := i
		for j := i - 1; j >= 0 && x.entries[j].Timestamp == x.entries[i].Timestamp; j-- {
			if x.entries[j].Keyframe {
				best = j
			}
		}
		return Entry{IndexEntry: x.entries[best], Ordinal: best}
	}

	return Entry{IndexEntry: x.entries[0], Ordinal: 0}
}

// Keyframes returns every keyframe entry in timestamp order.
func (x *Index) Keyframes() []Entry {
	var out []Entry
	for i, e := range x.entries {
		if e.Keyframe {
			out = append(out, Entry{IndexEntry: e, Ordinal: i})
		}
	}
	return out
}

// Entries returns every entry with its ordinal.
func (x *Index) Entries() []Entry {
	out := make([]Entry, len(x.entries))
	for i, e := range x.entries {
		out[i] = Entry{IndexEntry: e, Ordinal: i}
	}
	return out
}
