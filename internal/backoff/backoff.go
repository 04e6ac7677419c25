// Package backoff centralizes the fabric's retry and polling schedules so
// that the "ad-hoc retry sleeps" pattern flagged in spec.md §9 has exactly
// one implementation: a documented schedule of delays, walked by a single
// helper, rather than scattered time.Sleep calls.
package backoff

import (
	"context"
	"time"
)

// Schedule is an ordered list of delays to wait between retry attempts.
type Schedule []time.Duration

// AnchorConfirmSchedule is the anchor-confirmation retry ladder from
// spec.md §4.4 step 5: total wall-clock budget is 20s (2+3+5+5+5).
var AnchorConfirmSchedule = Schedule{2 * time.Second, 3 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second}

// StoreWaitSlice is the 200ms slice used while waiting up to 2s for an
// off-bus entry to arrive after an anchor is observed (spec.md §4.4 step 2).
const StoreWaitSlice = 200 * time.Millisecond

// StoreWaitBudget is the total wait budget for StoreWaitSlice polling.
const StoreWaitBudget = 2 * time.Second

// InboundPollInterval is the minimum tick interval for an agent's own
// inbound topic (spec.md §4.6).
const InboundPollInterval = 10 * time.Second

// ConnectionPollInterval is the minimum tick interval for connection
// topics (spec.md §4.6).
const ConnectionPollInterval = 15 * time.Second

// StoreRetention is how long an unverified off-bus entry survives in the
// Message Store before the sweeper evicts it (spec.md §3, §4.4).
const StoreRetention = time.Hour

// SweepInterval is how often the Message Store sweeper runs.
const SweepInterval = 5 * time.Minute

// AnchorClockSkewTolerance bounds how far an anchor's timestamp may drift
// from wall clock when matching a candidate (spec.md §4.4).
const AnchorClockSkewTolerance = 5 * time.Minute

// Retry calls fn once per entry in the schedule (plus an initial attempt
// before any wait), stopping as soon as fn returns true or the schedule is
// exhausted. It returns whether fn ever succeeded and how many attempts it
// took. Retry respects ctx cancellation between attempts.
func Retry(ctx context.Context, schedule Schedule, fn func(attempt int) (bool, error)) (bool, int, error) {
	ok, err := fn(0)
	if err != nil {
		return false, 1, err
	}
	if ok {
		return true, 1, nil
	}
	for i, delay := range schedule {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, i + 1, ctx.Err()
		case <-timer.C:
		}
		ok, err := fn(i + 1)
		if err != nil {
			return false, i + 2, err
		}
		if ok {
			return true, i + 2, nil
		}
	}
	return false, len(schedule) + 1, nil
}

// WaitInSlices sleeps in fixed-size slices up to budget, calling fn
// after each slice until it reports success or the budget is exhausted.
// Used for the 200ms/2s Message Store correlation wait.
func WaitInSlices(ctx context.Context, slice, budget time.Duration, fn func() bool) bool {
	if fn() {
		return true
	}
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if fn() {
			return true
		}
	}
	return false
}
