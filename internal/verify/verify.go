// Package verify implements the Verification Pipeline (spec.md §4.8): it
// orchestrates the Anchor Protocol's receive side and, on success, dispatches
// the verified envelope through the Subscription Registry. On any failure it
// only logs — it never invokes handlers, per spec.md §7's propagation policy.
package verify

import (
	"context"
	"log"

	"github.com/shane2512/AeXoWorK-sub001/internal/anchor"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
)

// Pipeline ties the Anchor Protocol's receive side to the Subscription
// Registry's dispatch, confirming anchors against a specific inbound topic.
type Pipeline struct {
	Protocol *anchor.Protocol
	Ledger   ledger.Client
	Registry *registry.Registry
}

// Verify attempts to correlate, confirm, and dispatch one observed anchor
// record that arrived on topicID. A failed verification (IntegrityError,
// AnchorNotConfirmed) is logged here and the error is also returned; no
// handler is invoked. An anchor abandoned silently (no off-bus copy in the
// store) returns nil. Monitor callers treat any returned error as "log and
// move on", so nothing reaches the agent (spec.md §7).
func (p *Pipeline) Verify(ctx context.Context, topicID string, rec envelope.AnchorRecord) error {
	e, err := p.Protocol.Receive(ctx, rec, func(ctx context.Context, attempt int) (bool, error) {
		return p.anchorVisible(ctx, topicID, rec)
	})
	if err != nil {
		log.Printf("verify: messageId=%s not dispatched: %v", rec.MessageID, err)
		return err
	}
	if e == nil {
		// Abandoned silently: the anchor was for another process or the
		// off-bus payload never arrived (spec.md §4.4 step 3).
		return nil
	}

	p.Registry.Dispatch(ctx, e, registry.Metadata{FromAccountID: rec.FromAccountID, Verified: true})
	return nil
}

// anchorVisible checks whether rec's messageId/hash is itself readable back
// from the ledger — i.e. the submit we're confirming has propagated to
// readers. In the fake/test ledger this is simply "is it in the topic's
// history"; a live mirror-node client would scan recent records for a
// matching anchor.
func (p *Pipeline) anchorVisible(ctx context.Context, topicID string, rec envelope.AnchorRecord) (bool, error) {
	records, err := p.Ledger.Fetch(ctx, topicID, 0, 100, false)
	if err != nil {
		return false, nil // transient ledger errors don't fail confirmation outright; retry schedule will re-poll
	}
	for _, r := range records {
		if candidate, ok := envelope.IsMessageAnchor(r.Payload); ok {
			if candidate.MessageID == rec.MessageID && candidate.Hash == rec.Hash {
				return true, nil
			}
		}
	}
	return false, nil
}
