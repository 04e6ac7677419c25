// Package monitor implements the Inbound Monitor (spec.md §4.6): a
// per-topic polling loop that reads new ledger records off an agent's
// inbound and connection topics, classifies each as a message anchor, an
// HCS-10 connection frame, or unrecognized, and routes message anchors to
// the Verification Pipeline.
//
// Grounded on the teacher's AgentFramework.startMessageProcessing
// (public/agent/framework.go): a goroutine selecting on ctx.Done() versus
// an inbound channel, logging and continuing past per-message errors
// rather than stopping the loop. Here the channel is synthesized locally
// by a time.Ticker rather than supplied by a broker subscription, since
// the ledger is polled rather than pushed to (spec.md §4.6: "minimum
// polling interval 10s/15s, exponential-style backoff under throttling
// is NOT required — a fixed interval is sufficient").
package monitor

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/backoff"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
)

// Dispatcher is the subset of the Verification Pipeline the monitor
// depends on, narrowed to a one-method interface so tests can inject a stub
// without constructing a full internal/verify.Pipeline.
type Dispatcher interface {
	Verify(ctx context.Context, topicID string, rec envelope.AnchorRecord) error
}

// DirectDispatcher is the subset of the Subscription Registry the monitor
// needs to route a direct-ledger fallback message (spec.md §4.6 step 4d):
// a full envelope posted straight to an inbound topic with no off-bus leg,
// used when the sender fell back to direct-ledger mode.
type DirectDispatcher interface {
	Dispatch(ctx context.Context, e *envelope.Envelope, meta registry.Metadata)
}

// ConnectionHandler processes one HCS-10 connection frame observed on any
// polled topic (spec.md §4.6 step 4). It is intentionally distinct
// from Dispatcher: connection frames never go through the Anchor
// Protocol's correlate/confirm machinery.
type ConnectionHandler func(ctx context.Context, topicID string, frame envelope.OffBusMessage)

// Topic is one ledger topic the monitor polls, tagged with the interval
// appropriate to its kind (spec.md §4.6: inbound topics poll at 10s,
// connection topics at 15s).
type Topic struct {
	ID       string
	Interval time.Duration
	// IsConnection marks a connection-request topic. It only records the
	// topic's kind: route classifies every record by its payload, so a
	// topic's records are routed the same way whatever this flag says.
	IsConnection bool
}

// InboundTopic returns a Topic configured for an agent's own inbound
// topic (spec.md §4.6).
func InboundTopic(id string) Topic {
	return Topic{ID: id, Interval: backoff.InboundPollInterval}
}

// ConnectionTopic returns a Topic configured for an HCS-10 connection
// topic (spec.md §4.6).
func ConnectionTopic(id string) Topic {
	return Topic{ID: id, Interval: backoff.ConnectionPollInterval, IsConnection: true}
}

// Monitor polls a set of ledger topics on independent tickers and routes
// observed records by classification (spec.md §4.6 steps 1-5).
type Monitor struct {
	Ledger            ledger.Client
	Sequences         *store.SequenceTracker
	Dispatcher        Dispatcher
	ConnectionHandler ConnectionHandler

	// Direct routes a direct-ledger fallback envelope straight to the
	// Subscription Registry (spec.md §4.6 step 4d). Nil is a valid
	// zero-value for agents that never expect direct-ledger traffic.
	Direct DirectDispatcher

	// Now is overridable for deterministic tests.
	Now func() time.Time
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Start launches one polling goroutine per topic. It returns immediately;
// all goroutines exit when ctx is cancelled, matching the teacher's
// "select on ctx.Done() versus work" shutdown idiom.
func (m *Monitor) Start(ctx context.Context, topics []Topic) {
	for _, topic := range topics {
		go m.pollLoop(ctx, topic)
	}
}

func (m *Monitor) pollLoop(ctx context.Context, topic Topic) {
	ticker := time.NewTicker(topic.Interval)
	defer ticker.Stop()

	m.pollOnce(ctx, topic)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx, topic)
		}
	}
}

// pollOnce fetches records strictly newer than the last-processed
// sequence for topic, classifies each, and routes it. Errors from Fetch
// (spec.md §4.6 step 1: REST failure falls back to SDK inside the
// ledger.Client implementation itself) are logged and the tick is
// skipped — the monitor never surfaces them to the agent (spec.md §7).
func (m *Monitor) pollOnce(ctx context.Context, topic Topic) {
	since := m.Sequences.Get(topic.ID)
	records, err := m.Ledger.Fetch(ctx, topic.ID, since, 100, true)
	if err != nil {
		log.Printf("monitor: fetch topic=%s since=%d: %v", topic.ID, since, err)
		return
	}

	for _, rec := range records {
		m.route(ctx, topic, rec)
		m.Sequences.Record(topic.ID, rec.Sequence)
	}
}

// route classifies one ledger record and dispatches it to the
// appropriate handler (spec.md §4.6 steps 2-5). Unrecognized payloads
// (step 5) are logged and otherwise ignored — they are not an error
// condition, since other processes may share a topic for purposes this
// agent doesn't participate in.
func (m *Monitor) route(ctx context.Context, topic Topic, rec ledger.Record) {
	if envelope.IsHCS10ConnectionFrame(rec.Payload) {
		if m.ConnectionHandler != nil {
			var frame envelope.OffBusMessage
			_ = json.Unmarshal(rec.Payload, &frame)
			m.ConnectionHandler(ctx, topic.ID, frame)
		}
		return
	}

	if anchorRec, ok := envelope.IsMessageAnchor(rec.Payload); ok {
		if m.Dispatcher == nil {
			return
		}
		if err := m.Dispatcher.Verify(ctx, topic.ID, *anchorRec); err != nil {
			log.Printf("monitor: verify messageId=%s topic=%s: %v", anchorRec.MessageID, topic.ID, err)
		}
		return
	}

	// Otherwise, treat as a direct-ledger message (spec.md §4.6 step 4d):
	// the sender posted the full envelope with no off-bus/anchor leg,
	// typically because it fell back to direct-ledger mode (spec.md §4.2).
	// A subject is required; records that aren't even a JSON object, or
	// lack one, are non-routable (step 4e) and only logged.
	var e envelope.Envelope
	if err := json.Unmarshal(rec.Payload, &e); err != nil {
		log.Printf("monitor: non-routable record sequence=%d topic=%s: not a JSON envelope", rec.Sequence, topic.ID)
		return
	}
	if e.Subject == "" {
		log.Printf("monitor: non-routable record sequence=%d topic=%s: missing subject", rec.Sequence, topic.ID)
		return
	}
	if e.FromAccountID == "" {
		e.FromAccountID = rec.PayerAccountID
	}
	if m.Direct == nil {
		return
	}
	m.Direct.Dispatch(ctx, &e, registry.Metadata{FromAccountID: e.FromAccountID, Verified: false})
}
