package tsqueue

import "testing"

func TestQueue_PopsInOrder(t *testing.T) {
	var q Queue
	for _, ts := range []int64{0, 1536, 512, 1024, 3072, 2048, 2560} {
		q.Push(ts)
	}

	var prev int64 = -1
	for q.Len() > 0 {
		ts, ok := q.Pop()
		if !ok {
			t.Fatal("Pop reported empty queue")
		}
		if ts <= prev {
			t.Errorf("popped %d after %d", ts, prev)
		}
		prev = ts
	}
	if prev != 3072 {
		t.Errorf("expected last timestamp 3072, got %d", prev)
	}
}

func TestQueue_EmptyAndReset(t *testing.T) {
	var q Queue
	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}

	q.Push(5)
	q.Push(3)
	q.Reset()
	if q.Len() != 0 {
		t.Errorf("expected empty queue after Reset, got %d", q.Len())
	}
}
