// Package send implements the Send Pipeline (spec.md §4.7): given a
// subject and an envelope carrying an optional `to`, resolve one or more
// recipients against the Known-Peer Table, attach routing fields, and
// deliver each copy via the Anchor Protocol's off-bus path or, when
// off-chain messaging is disabled, directly to the recipient's inbound
// topic.
//
// Grounded on the teacher's internal/client broker publish path (a
// resolve-then-publish sequence returning a receipt) generalized from a
// single broker target to the fabric's per-recipient fan-out, and on
// spec.md §4.7's explicit broadcast/targeted split.
package send

import (
	"context"

	"github.com/shane2512/AeXoWorK-sub001/internal/anchor"
	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/metrics"
)

// Method reports how one recipient's copy was delivered (spec.md §4.7).
type Method string

const (
	MethodOffChainBus Method = "offchain-bus"
	MethodDirect      Method = "direct"
)

// Receipt is returned per recipient.
type Receipt struct {
	RecipientAccountID string
	Method             Method
	MessageID          string
	AnchorTxID         string
	Err                error
}

// Result is returned by Pipeline.Send: one Receipt per resolved recipient.
// For a targeted send this always has length 0 or 1; for a broadcast it
// may have many.
type Result struct {
	Receipts []Receipt
}

// Pipeline resolves recipients and dispatches to each, per spec.md §4.7.
type Pipeline struct {
	Protocol *anchor.Protocol
	Ledger   ledger.Client
	Peers    config.PeerTable
	Self     config.Identity

	// UseOffChainMessaging mirrors the process-wide flag (spec.md §6); it
	// is read fresh on every Send so that a runtime fallback to
	// direct-ledger mode (triggered once, at startup, by bus
	// unavailability) takes effect for every subsequent call without the
	// Pipeline needing to be reconstructed.
	UseOffChainMessaging func() bool
}

// Send resolves recipients for subject/e and dispatches a copy to each,
// per spec.md §4.7. On a targeted send (e.To set) the single recipient
// error, if any, is returned directly; on a broadcast, per-recipient
// errors are recorded in the Result but never returned — spec.md §4.7's
// "per-recipient errors during broadcast are counted but do not abort
// remaining deliveries".
func (p *Pipeline) Send(ctx context.Context, subject string, e *envelope.Envelope) (Result, error) {
	to := e.To

	if to != "" {
		peer, ok := p.Peers.ByAccountID(to)
		if !ok {
			metrics.MessagesSent.WithLabelValues("targeted", "error").Inc()
			return Result{}, envelope.New(envelope.KindUnknownRecipient, "recipient "+to+" is not in the known-peer table")
		}
		receipt := p.deliverOne(ctx, subject, e, peer)
		result := Result{Receipts: []Receipt{receipt}}
		if receipt.Err != nil {
			metrics.MessagesSent.WithLabelValues("targeted", "error").Inc()
			return result, receipt.Err
		}
		metrics.MessagesSent.WithLabelValues("targeted", "ok").Inc()
		return result, nil
	}

	// Broadcast: every known peer except self (spec.md §4.7, §9 "skip
	// self").
	var receipts []Receipt
	for _, peer := range p.Peers {
		if peer.AccountID == p.Self.AccountID {
			continue
		}
		receipt := p.deliverOne(ctx, subject, e, peer)
		if receipt.Err != nil {
			metrics.MessagesSent.WithLabelValues("broadcast", "error").Inc()
		} else {
			metrics.MessagesSent.WithLabelValues("broadcast", "ok").Inc()
		}
		receipts = append(receipts, receipt)
	}
	return Result{Receipts: receipts}, nil
}

// deliverOne attaches subject/fromAccountId to a shallow copy of e and
// delivers it to one peer, choosing transport per spec.md §4.7.
func (p *Pipeline) deliverOne(ctx context.Context, subject string, e *envelope.Envelope, peer config.Peer) Receipt {
	copyEnv := e.Clone()
	copyEnv.Subject = subject
	copyEnv.FromAccountID = p.Self.AccountID
	copyEnv.To = peer.AccountID

	useBus := p.Protocol.Bus.IsConnected()
	if p.UseOffChainMessaging != nil {
		useBus = useBus && p.UseOffChainMessaging()
	}

	if useBus {
		result, err := p.Protocol.Send(ctx, peer.AccountID, peer.InboundTopicID, copyEnv)
		if err != nil {
			return Receipt{RecipientAccountID: peer.AccountID, Method: MethodOffChainBus, Err: err}
		}
		return Receipt{
			RecipientAccountID: peer.AccountID,
			Method:             MethodOffChainBus,
			MessageID:          result.MessageID,
			AnchorTxID:         result.AnchorTxID,
		}
	}

	payload, err := copyEnv.Canonical()
	if err != nil {
		return Receipt{RecipientAccountID: peer.AccountID, Method: MethodDirect, Err: envelope.Wrap(envelope.KindIntegrityError, "canonicalize envelope for direct send", err)}
	}
	receipt, err := p.Ledger.Submit(ctx, peer.InboundTopicID, payload)
	if err != nil {
		return Receipt{RecipientAccountID: peer.AccountID, Method: MethodDirect, Err: err}
	}
	return Receipt{RecipientAccountID: peer.AccountID, Method: MethodDirect, AnchorTxID: receipt.TransactionID}
}
