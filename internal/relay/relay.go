// Package relay implements the optional Relay Agent (spec.md §4.9): a
// privileged agent that subscribes to the wildcard subject, keeps a
// registration table of `(agentAccountId, subjects[])`, and on receipt of
// a routable message forwards it to every registered peer whose subject
// list contains the message's subject, except the sender. It reuses the
// Send Pipeline for delivery rather than talking to the bus/ledger
// directly.
//
// Grounded on the teacher's internal/broker fan-out model (a Topic's
// subscriber list, iterated and delivered to each member) generalized
// from "subscribers of one topic" to "peers registered for one subject",
// and on spec.md §4.9's explicit relayed/originalFrom/relayedBy tagging.
package relay

import (
	"context"
	"sync"

	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/send"
)

// Registration is one entry of the relay's registration table: an agent
// and the subjects it wants forwarded to it.
type Registration struct {
	AgentAccountID string
	Subjects       []string
}

// Table is the relay's registration table, keyed by agent account id.
type Table struct {
	mu    sync.RWMutex
	byAgt map[string]map[string]struct{} // accountId -> set of subjects
}

// NewTable returns an empty registration table.
func NewTable() *Table {
	return &Table{byAgt: make(map[string]map[string]struct{})}
}

// Register records that agentAccountID wants messages on subjects
// forwarded to it. Calling Register again for the same agent replaces
// its subject set.
func (t *Table) Register(agentAccountID string, subjects []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		set[s] = struct{}{}
	}
	t.byAgt[agentAccountID] = set
}

// Unregister removes agentAccountID from the table entirely.
func (t *Table) Unregister(agentAccountID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byAgt, agentAccountID)
}

// SubscribersTo returns every registered agent (other than exclude) whose
// subject set contains subject.
func (t *Table) SubscribersTo(subject, exclude string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for agentAccountID, subjects := range t.byAgt {
		if agentAccountID == exclude {
			continue
		}
		if _, ok := subjects[subject]; ok {
			out = append(out, agentAccountID)
		}
	}
	return out
}

// Agent forwards routable envelopes to every registered peer subscribed
// to the envelope's subject (spec.md §4.9).
type Agent struct {
	Table *Table
	Send  *send.Pipeline
	Peers config.PeerTable
}

// OnEnvelope is registered against the Subscription Registry's wildcard
// subject. It forwards e to every registered subscriber of e.Subject
// except the original sender, tagging the forwarded copy as spec.md §4.9
// requires.
func (a *Agent) OnEnvelope(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
	subscribers := a.Table.SubscribersTo(e.Subject, meta.FromAccountID)
	for _, subscriberAccountID := range subscribers {
		peer, ok := a.Peers.ByAccountID(subscriberAccountID)
		if !ok {
			continue
		}
		forwarded := e.Clone()
		forwarded.To = peer.AccountID
		_ = forwarded.SetField("relayed", true)
		_ = forwarded.SetField("originalFrom", meta.FromAccountID)
		_ = forwarded.SetField("relayedBy", a.Send.Self.AccountID)

		if _, err := a.Send.Send(ctx, e.Subject, forwarded); err != nil {
			// Per-recipient forwarding failures don't abort the fan-out,
			// matching the Send Pipeline's own broadcast failure policy.
			continue
		}
	}
}
