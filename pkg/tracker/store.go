package tracker

import (
	"sync"
	"time"
)

// Store holds the current best-known TrackedFlight per (aircraft, airport)
// pair. A single reader/writer lock serializes writes against snapshot
// reads; the working set is one small map, so finer-grained locking buys
// nothing here.
//
// Records are overwritten whole on every upsert and never merged. The store
// reflects the most recently processed report, not the most recent by
// embedded timestamp.
type Store struct {
	mu      sync.RWMutex
	flights map[FlightKey]*TrackedFlight
}

// NewStore creates an empty flight state store.
func NewStore() *Store {
	return &Store{
		flights: make(map[FlightKey]*TrackedFlight),
	}
}

// Upsert replaces any prior record for the flight's (aircraft, airport) key
// unconditionally.
func (s *Store) Upsert(f TrackedFlight) {
	key := FlightKey{ICAO24: f.ICAO24, AirportCode: f.AirportCode}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[key] = &f
}

// SnapshotAll returns a consistent point-in-time copy of all records.
func (s *Store) SnapshotAll() []TrackedFlight {
	return s.SnapshotFiltered(nil)
}

// SnapshotFiltered returns copies of all records matching the predicate.
// A nil predicate matches everything. Returns an empty slice, never nil,
// when nothing matches.
func (s *Store) SnapshotFiltered(pred func(*TrackedFlight) bool) []TrackedFlight {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []TrackedFlight{}
	for _, f := range s.flights {
		if pred == nil || pred(f) {
			out = append(out, *f)
		}
	}
	return out
}

// Len returns the number of tracked flight records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flights)
}

// SweepStale removes records whose LastSeen is older than maxAge and
// returns the eviction count. Should be called periodically to prevent
// unbounded growth; a maxAge of 0 disables eviction.
func (s *Store) SweepStale(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, f := range s.flights {
		if f.LastSeen.Before(cutoff) {
			delete(s.flights, key)
			evicted++
		}
	}
	return evicted
}
