package repository

import (
	"sync"
	"testing"
	"time"
)

func TestIDSequenceMonotonicWithinMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	seq := &IDSequence{now: func() time.Time { return fixed }}

	first := seq.Next()
	second := seq.Next()
	third := seq.Next()

	if first != fixed.UnixMilli() {
		t.Fatalf("first id = %d, want %d", first, fixed.UnixMilli())
	}
	if second != first+1 || third != second+1 {
		t.Fatalf("ids not bumped: %d, %d, %d", first, second, third)
	}
}

func TestIDSequenceObserve(t *testing.T) {
	fixed := time.UnixMilli(1_000)
	seq := &IDSequence{now: func() time.Time { return fixed }}
	seq.Observe(5_000)

	if got := seq.Next(); got != 5_001 {
		t.Fatalf("Next after Observe = %d, want 5001", got)
	}
}

func TestIDSequenceConcurrentUnique(t *testing.T) {
	seq := NewIDSequence()
	const n = 500

	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := seq.Next()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("got %d unique ids, want %d", len(seen), n)
	}
}
