package repository

import (
	"sync"
	"time"
)

// IDSequence hands out creation-timestamp-derived identifiers: the current
// Unix time in milliseconds, bumped past the previous value when two records
// are created within the same millisecond.
type IDSequence struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDSequence() *IDSequence {
	return &IDSequence{now: time.Now}
}

// Next returns an identifier strictly greater than every earlier one.
func (s *IDSequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// Observe advances the sequence past an identifier loaded from storage.
func (s *IDSequence) Observe(id int64) {
	s.mu.Lock()
	if id > s.last {
		s.last = id
	}
	s.mu.Unlock()
}
