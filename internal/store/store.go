// Package store implements the process-local Message Store and
// Verification Cache (spec.md §3). The Message Store holds off-bus
// messages by messageId until the Verification Pipeline correlates and
// deletes them, or the periodic sweeper evicts entries past retention.
// Grounded on the teacher's internal/chunks.ChunkTracker, which keeps an
// in-memory map with a TTL-driven cleanup goroutine for transient,
// not-yet-assembled state — the same "ephemeral correlation buffer with a
// sweep" shape this package needs for anchor/off-bus correlation.
package store

import (
	"sync"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/backoff"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/metrics"
)

// Entry is one Message Store row: an off-bus message plus the time it was
// received, used to compute eviction eligibility.
type Entry struct {
	Message    envelope.OffBusMessage
	ReceivedAt time.Time
}

// Store is the single-writer-per-consumer Message Store (spec.md §5): the
// bus subscription handler inserts, the Verification Pipeline deletes on
// success, and a sweeper evicts stale entries. All three interact only
// through the exported methods below, each independently locked.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry

	retention time.Duration

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New returns an empty Store using the spec's 1-hour retention.
func New() *Store {
	return &Store{
		entries:   make(map[string]Entry),
		retention: backoff.StoreRetention,
	}
}

// Put inserts or overwrites the off-bus entry for msg.MessageID, stamping
// ReceivedAt to now.
func (s *Store) Put(msg envelope.OffBusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[msg.MessageID] = Entry{Message: msg, ReceivedAt: time.Now()}
}

// Get returns the entry for messageID, if present and not yet evicted.
func (s *Store) Get(messageID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[messageID]
	return e, ok
}

// Delete removes messageID, implementing the at-most-once-dispatch
// property (spec.md §4.8): once deleted, a duplicate anchor observation
// finds nothing and abandons silently.
func (s *Store) Delete(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, messageID)
}

// Len reports the current store size, exposed for metrics and tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep evicts entries older than retention, returning how many were
// removed, and reports the post-sweep size to metrics.StoreSize (ambient
// observability only — no spec.md operation depends on the gauge).
func (s *Store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.ReceivedAt) > s.retention {
			delete(s.entries, id)
			removed++
		}
	}
	metrics.StoreSize.Set(float64(len(s.entries)))
	return removed
}

// StartSweeper launches the periodic eviction goroutine (spec.md §4.4:
// "retention: evict entries older than 1 hour; enforced by a periodic
// sweep" at a 5-minute cadence). Call Stop to halt it on shutdown.
func (s *Store) StartSweeper() {
	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})
	go func() {
		defer close(s.sweepDone)
		ticker := time.NewTicker(backoff.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.sweepStop:
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}

// Stop halts the sweeper goroutine started by StartSweeper, if any.
func (s *Store) Stop() {
	if s.sweepStop == nil {
		return
	}
	close(s.sweepStop)
	<-s.sweepDone
}
