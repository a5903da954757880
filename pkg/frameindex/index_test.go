package frameindex

import (
	"errors"
	"testing"

	"github.com/user/framegrab/pkg/ports"
)

// gopEntries builds count entries spaced dur apart with a keyframe every gop entries.
func gopEntries(count, gop int, dur int64) []ports.IndexEntry {
	entries := make([]ports.IndexEntry, count)
	for i := range entries {
		entries[i] = ports.IndexEntry{
			Offset:    int64(1000 + i*100),
			Size:      100,
			Timestamp: int64(i) * dur,
			Keyframe:  i%gop == 0,
		}
	}
	return entries
}

func TestIndex_EntryAt(t *testing.T) {
	idx := New(gopEntries(10, 5, 512))

	e, err := idx.EntryAt(7)
	if err != nil {
		t.Fatalf("EntryAt failed: %v", err)
	}
	if e.Ordinal != 7 || e.Timestamp != 7*512 {
		t.Errorf("expected ordinal 7 at ts %d, got ordinal %d at ts %d", 7*512, e.Ordinal, e.Timestamp)
	}

	for _, ordinal := range []int{-1, 10, 100} {
		if _, err := idx.EntryAt(ordinal); !errors.Is(err, ErrNotFound) {
			t.Errorf("ordinal %d: expected ErrNotFound, got %v", ordinal, err)
		}
	}
}

func TestIndex_SortsByTimestampThenOffset(t *testing.T) {
	idx := New([]ports.IndexEntry{
		{Offset: 300, Timestamp: 20},
		{Offset: 200, Timestamp: 10},
		{Offset: 100, Timestamp: 20, Keyframe: true},
		{Offset: 50, Timestamp: 0, Keyframe: true},
	})

	want := []int64{50, 200, 100, 300}
	for i, e := range idx.Entries() {
		if e.Offset != want[i] {
			t.Errorf("entry %d: expected offset %d, got %d", i, want[i], e.Offset)
		}
	}
}

func TestIndex_NearestKeyframeBefore(t *testing.T) {
	// 30 fps in a 1/15360 time base, keyframe every 60 frames
	const dur = 512
	idx := New(gopEntries(150, 60, dur))

	tests := []struct {
		name    string
		ts      int64
		ordinal int
	}{
		{"exact keyframe", 60 * dur, 60},
		{"inside second gop", 75 * dur, 60},
		{"between entries", 75*dur + 7, 60},
		{"first gop", 59 * dur, 0},
		{"last entry", 149 * dur, 120},
		{"before first entry", -10, 0},
		{"past the end", 1 << 40, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := idx.NearestKeyframeBefore(tt.ts)
			if e.Ordinal != tt.ordinal {
				t.Errorf("expected ordinal %d, got %d", tt.ordinal, e.Ordinal)
			}
		})
	}
}

func TestIndex_NearestKeyframeBefore_NoKeyframeFallsBackToFirst(t *testing.T) {
	entries := gopEntries(10, 1, 100)
	for i := range entries {
		entries[i].Keyframe = false
	}
	entries[8].Keyframe = true
	idx := New(entries)

	e := idx.NearestKeyframeBefore(500)
	if e.Ordinal != 0 {
		t.Errorf("expected fallback to first entry, got ordinal %d", e.Ordinal)
	}
}

func TestIndex_NearestKeyframeBefore_TieBreakLowestOffset(t *testing.T) {
	idx := New([]ports.IndexEntry{
		{Offset: 0, Timestamp: 0, Keyframe: true},
		{Offset: 900, Timestamp: 100, Keyframe: true},
		{Offset: 400, Timestamp: 100, Keyframe: true},
		{Offset: 500, Timestamp: 200},
	})

	e := idx.NearestKeyframeBefore(150)
	if e.Offset != 400 {
		t.Errorf("expected keyframe at offset 400, got %d", e.Offset)
	}
}

func TestIndex_Keyframes(t *testing.T) {
	idx := New(gopEntries(130, 60, 512))

	kfs := idx.Keyframes()
	if len(kfs) != 3 {
		t.Fatalf("expected 3 keyframes, got %d", len(kfs))
	}
	for i, want := range []int{0, 60, 120} {
		if kfs[i].Ordinal != want {
			t.Errorf("keyframe %d: expected ordinal %d, got %d", i, want, kfs[i].Ordinal)
		}
	}
}

func TestIndex_Empty(t *testing.T) {
	idx := New(nil)
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
	if e := idx.NearestKeyframeBefore(0); e.Ordinal != 0 || e.Offset != 0 {
		t.Errorf("expected zero entry, got %+v", e)
	}
}
