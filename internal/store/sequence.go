package store

import "sync"

// SequenceTracker is the explicit type spec.md §9 asks for in place of a
// "function-level map": per inbound topic, the highest ledger sequence
// number already processed, surviving monitor restarts within the same
// process (spec.md §3).
type SequenceTracker struct {
	mu    sync.RWMutex
	byTop map[string]uint64
}

// NewSequenceTracker returns an empty tracker; every topic starts at 0
// (spec.md §3).
func NewSequenceTracker() *SequenceTracker {
	return &SequenceTracker{byTop: make(map[string]uint64)}
}

// Get returns the last-processed sequence for topicID, defaulting to 0.
func (t *SequenceTracker) Get(topicID string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byTop[topicID]
}

// Record advances the tracked sequence for topicID to sequence if it is
// greater than the current value (monotonic — a poll tick that reads
// records out of update order can never move the tracker backwards).
func (t *SequenceTracker) Record(topicID string, sequence uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sequence > t.byTop[topicID] {
		t.byTop[topicID] = sequence
	}
}
