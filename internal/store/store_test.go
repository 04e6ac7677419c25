package store

import (
	"testing"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	s := New()
	msg := envelope.OffBusMessage{MessageID: "abc", Hash: "deadbeef"}
	s.Put(msg)

	got, ok := s.Get("abc")
	require.True(t, ok)
	require.Equal(t, "deadbeef", got.Message.Hash)

	s.Delete("abc")
	_, ok = s.Get("abc")
	require.False(t, ok)
}

func TestSweepEvictsOldEntries(t *testing.T) {
	s := New()
	s.retention = 10 * time.Millisecond
	s.Put(envelope.OffBusMessage{MessageID: "old"})

	time.Sleep(20 * time.Millisecond)
	s.Put(envelope.OffBusMessage{MessageID: "fresh"})

	removed := s.sweep(time.Now())
	require.Equal(t, 1, removed)

	_, ok := s.Get("old")
	require.False(t, ok)
	_, ok = s.Get("fresh")
	require.True(t, ok)
}

func TestVerificationCacheBounded(t *testing.T) {
	c := NewVerificationCache(2)
	c.Add("a")
	c.Add("b")
	require.True(t, c.Contains("a"))

	c.Add("c")
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("c"))
}

func TestSequenceTrackerMonotonic(t *testing.T) {
	tr := NewSequenceTracker()
	require.Equal(t, uint64(0), tr.Get("0.0.2001"))

	tr.Record("0.0.2001", 5)
	require.Equal(t, uint64(5), tr.Get("0.0.2001"))

	tr.Record("0.0.2001", 3)
	require.Equal(t, uint64(5), tr.Get("0.0.2001"))

	tr.Record("0.0.2001", 9)
	require.Equal(t, uint64(9), tr.Get("0.0.2001"))
}
