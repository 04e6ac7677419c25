// Package ledger is a thin facade over the external consensus/topic service
// that anchors messages on-chain (spec.md §4.1). Two implementations are
// provided behind the Client interface: a REST mirror-node client
// (preferred) and an SDK-fallback client, grounded on the teacher's
// internal/storage.HTTPClient/Client split between a direct-HTTP path and a
// broker-mediated path.
package ledger

import (
	"context"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// Record is one message read back from a topic via Fetch.
type Record struct {
	Sequence           uint64
	PayerAccountID     string
	ConsensusTimestamp time.Time
	Payload            []byte
}

// TxReceipt is returned by Submit; it carries at minimum a transaction id.
type TxReceipt struct {
	TransactionID string
}

// Client is the fabric-facing ledger interface. Both MirrorRESTClient and
// SDKClient satisfy it; the Inbound Monitor and Anchor Protocol depend only
// on this interface, never on a concrete transport.
type Client interface {
	// Submit appends payload to topicID. Returns LedgerUnavailable or
	// Throttled (spec.md §7) on failure.
	Submit(ctx context.Context, topicID string, payload []byte) (TxReceipt, error)

	// Fetch reads messages strictly newer than sinceSequence, ascending or
	// descending, capped at limit. Idempotent: calling it twice with the
	// same arguments returns the same set (modulo new arrivals).
	Fetch(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error)
}

// Network selects the mirror-node base URL (spec.md §6 ledgerNetwork).
type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

func (n Network) baseURL() string {
	switch n {
	case NetworkMainnet:
		return "https://mainnet-public.mirrornode.hedera.com"
	default:
		return "https://testnet.mirrornode.hedera.com"
	}
}

// NewFallbackClient wires a MirrorRESTClient as primary and an SDKClient as
// fallback, matching spec.md §4.6 step 3: "If REST read fails with a
// non-429 error, fall back to the SDK read." Submit always goes through the
// REST client; the SDK client exists solely as the documented fetch
// fallback (spec.md §4.1 "Two implementations must be supported").
func NewFallbackClient(network Network, sdk SDKTransport) Client {
	return &fallbackClient{
		rest: NewMirrorRESTClient(network),
		sdk:  NewSDKClient(sdk),
	}
}

type fallbackClient struct {
	rest *MirrorRESTClient
	sdk  *SDKClient
}

func (f *fallbackClient) Submit(ctx context.Context, topicID string, payload []byte) (TxReceipt, error) {
	return f.rest.Submit(ctx, topicID, payload)
}

func (f *fallbackClient) Fetch(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error) {
	records, err := f.rest.Fetch(ctx, topicID, sinceSequence, limit, ascending)
	if err == nil {
		return records, nil
	}
	var ferr *envelope.FabricError
	if fe, ok := err.(*envelope.FabricError); ok {
		ferr = fe
	}
	if ferr != nil && ferr.Kind == envelope.KindThrottled {
		// 429s are swallowed by the monitor's own cadence, never retried
		// here (spec.md §4.1).
		return nil, err
	}
	return f.sdk.Fetch(ctx, topicID, sinceSequence, limit, ascending)
}
