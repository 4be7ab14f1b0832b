package intake

import (
	"sync"
	"time"

	"github.com/timvw/term-courier/internal/model"
)

const defaultMaxResults = 256

// Store keeps a bounded, time-limited history of dispatch results so
// console views and listeners can show what was recently sent without
// growing without bound.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	results []model.DispatchResult
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl: ttl,
		max: defaultMaxResults,
	}
}

// Append records results in the order they completed, dropping the
// oldest entries once the cap is reached.
func (s *Store) Append(results ...model.DispatchResult) {
	if len(results) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, results...)
	if over := len(s.results) - s.max; over > 0 {
		s.results = append([]model.DispatchResult(nil), s.results[over:]...)
	}
}

// Snapshot returns the retained results oldest first, pruning entries
// older than the TTL. A zero TTL disables pruning.
func (s *Store) Snapshot(now time.Time) []model.DispatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ttl > 0 {
		cutoff := now.Add(-s.ttl)
		kept := s.results[:0]
		for _, r := range s.results {
			if r.SentAt.After(cutoff) {
				kept = append(kept, r)
			}
		}
		s.results = kept
	}

	out := make([]model.DispatchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Len reports how many results are currently retained, without pruning.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Clear drops all retained results.
func (s *Store) Clear() {
	s.mu.Lock()
	s.results = nil
	s.mu.Unlock()
}
