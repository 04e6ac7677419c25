// Package bus is a thin facade over the low-latency publish/subscribe bus
// that carries off-chain payloads (spec.md §4.2). The real implementation
// wraps github.com/nats-io/nats.go, grounded on the only pack file that
// drives a NATS connection end to end
// (other_examples/.../AmityVox/internal/federation/sync.go).
package bus

import (
	"context"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// Client is the fabric-facing bus interface. NatsClient and FakeClient both
// satisfy it.
type Client interface {
	Publish(subject string, payload []byte) error
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
	IsConnected() bool
	Close()
}

// Subject returns the off-bus subject for a recipient account id, per
// spec.md §6: `offchain.<recipientAccountId>`.
func Subject(recipientAccountID string) string {
	return "offchain." + recipientAccountID
}

var errNotConnected = envelope.New(envelope.KindBusUnavailable, "bus not connected")

// ErrBusUnavailable is returned by Publish whenever the client does not
// report itself connected (including while a reconnect is in progress).
func ErrBusUnavailable() error { return errNotConnected }
