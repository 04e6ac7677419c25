// Package anchor implements the Anchor Protocol (spec.md §4.4): given a
// payload, publish its content off-bus and its proof on-ledger; given an
// anchor observed on-ledger, correlate it with the off-bus copy, verify,
// and recover the payload.
//
// There is no direct teacher analogue for this package — the teacher's
// broker never confirms anything on a separate ledger — so the shape here
// is built from spec.md directly, reusing internal/backoff for the
// documented retry schedules and the teacher's envelope/chunking
// wait-and-retry style (internal/chunks/tracker.go) for how a correlation
// wait loop is structured.
package anchor

import (
	"context"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/backoff"
	"github.com/shane2512/AeXoWorK-sub001/internal/bus"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/metrics"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
)

// Protocol bundles the dependencies the Anchor Protocol's send and receive
// sides need. It holds no mutable state of its own beyond what it's handed
// (Store, Cache) — FabricRuntime owns the single shared instances.
type Protocol struct {
	Codec    envelope.PayloadCodec
	Verifier envelope.Verifier
	Ledger   ledger.Client
	Bus      bus.Client
	Store    *store.Store
	Cache    *store.VerificationCache

	FromAccountID string
	KeyPair       *envelope.KeyPair

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func (p *Protocol) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// SendResult is returned by Send (spec.md §4.4 step 8).
type SendResult struct {
	MessageID string
	AnchorTxID string
	Hash       string
}

// Send implements spec.md §4.4's send side: serialize, obfuscate, hash,
// sign, mint an id, publish off-bus, submit the anchor on-ledger.
func (p *Protocol) Send(ctx context.Context, recipientAccountID, recipientInboundTopicID string, e *envelope.Envelope) (SendResult, error) {
	payloadJSON, err := e.Canonical()
	if err != nil {
		return SendResult{}, envelope.Wrap(envelope.KindIntegrityError, "canonicalize envelope", err)
	}

	encrypted, err := p.Codec.Obfuscate(payloadJSON)
	if err != nil {
		return SendResult{}, envelope.Wrap(envelope.KindIntegrityError, "obfuscate payload", err)
	}

	hash := envelope.Sha256Hex([]byte(encrypted))
	timestamp := p.now().UnixMilli()

	sig, err := envelope.SignHashAndTimestamp(p.KeyPair.Private, hash, timestamp)
	if err != nil {
		return SendResult{}, err
	}

	messageID, err := envelope.MintMessageID()
	if err != nil {
		return SendResult{}, err
	}

	offBus := envelope.OffBusMessage{
		MessageID:        messageID,
		EncryptedPayload: encrypted,
		Hash:             hash,
		Timestamp:        timestamp,
		Signature:        sig,
		FromAccountID:    p.FromAccountID,
	}
	offBusJSON, err := marshalOffBus(offBus)
	if err != nil {
		return SendResult{}, err
	}
	if err := p.Bus.Publish(bus.Subject(recipientAccountID), offBusJSON); err != nil {
		return SendResult{}, envelope.Wrap(envelope.KindBusUnavailable, "publish off-bus message", err)
	}

	rec := envelope.AnchorRecord{
		Type:          "message_anchor",
		MessageID:     messageID,
		Hash:          hash,
		Timestamp:     timestamp,
		Signature:     sig,
		FromAccountID: p.FromAccountID,
		ToAccountID:   recipientAccountID,
		Version:       envelope.AnchorVersion,
	}
	recJSON, err := marshalAnchor(rec)
	if err != nil {
		return SendResult{}, err
	}
	receipt, err := p.Ledger.Submit(ctx, recipientInboundTopicID, recJSON)
	if err != nil {
		return SendResult{}, err
	}

	return SendResult{MessageID: messageID, AnchorTxID: receipt.TransactionID, Hash: hash}, nil
}

// OnOffBusMessage is the bus subscription handler: it inserts a newly
// arrived off-bus message into the Message Store (spec.md §3 "Mutated by:
// bus subscription handler (insert)").
func (p *Protocol) OnOffBusMessage(raw []byte) {
	msg, err := unmarshalOffBus(raw)
	if err != nil {
		return
	}
	p.Store.Put(msg)
}

// Receive implements spec.md §4.4's receive side for one observed anchor:
// correlate with the Message Store, verify the hash, confirm on-ledger,
// deobfuscate, and return the verified envelope. On any failure, including
// IntegrityError, the Message Store entry is left untouched so a later
// poll or sweep can still act on it. The anchor's signature is not checked.
func (p *Protocol) Receive(ctx context.Context, rec envelope.AnchorRecord, confirm func(ctx context.Context, attempt int) (bool, error)) (*envelope.Envelope, error) {
	start := p.now()
	defer func() {
		metrics.VerificationDuration.Observe(p.now().Sub(start).Seconds())
	}()

	var entry store.Entry
	found := backoff.WaitInSlices(ctx, backoff.StoreWaitSlice, backoff.StoreWaitBudget, func() bool {
		e, ok := p.Store.Get(rec.MessageID)
		if ok {
			entry = e
		}
		return ok
	})
	if !found {
		// Anchor is for another process, or the payload is lost.
		// Abandon silently (spec.md §4.4 step 3).
		return nil, nil
	}

	recomputed := envelope.Sha256Hex([]byte(entry.Message.EncryptedPayload))
	if recomputed != rec.Hash {
		metrics.IntegrityErrors.Inc()
		return nil, envelope.New(envelope.KindIntegrityError, "anchor hash does not match off-bus payload")
	}

	confirmed, attempts, err := backoff.Retry(ctx, backoff.AnchorConfirmSchedule, func(attempt int) (bool, error) {
		return confirm(ctx, attempt)
	})
	metrics.AnchorConfirmAttempts.Observe(float64(attempts))
	if err != nil {
		return nil, envelope.Wrap(envelope.KindAnchorNotConfirmed, "confirm anchor on ledger", err)
	}
	if !confirmed {
		return nil, envelope.New(envelope.KindAnchorNotConfirmed, "anchor not visible within budget")
	}

	plain, err := p.Codec.Deobfuscate(entry.Message.EncryptedPayload)
	if err != nil {
		return nil, err
	}

	var e envelope.Envelope
	if err := unmarshalEnvelope(plain, &e); err != nil {
		return nil, envelope.Wrap(envelope.KindIntegrityError, "decode envelope payload", err)
	}

	p.Store.Delete(rec.MessageID)
	p.Cache.Add(rec.Hash)
	return &e, nil
}

// WithinClockSkew reports whether an anchor's timestamp is within the
// tolerated 5-minute window of now (spec.md §4.4).
func (p *Protocol) WithinClockSkew(timestampMillis int64) bool {
	t := time.UnixMilli(timestampMillis)
	diff := p.now().Sub(t)
	if diff < 0 {
		diff = -diff
	}
	return diff <= backoff.AnchorClockSkewTolerance
}
