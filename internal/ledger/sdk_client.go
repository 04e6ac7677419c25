package ledger

import (
	"context"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// SDKTransport is the narrow surface the fabric needs from a native
// consensus-service SDK: submit bytes to a topic, read messages back. No
// vendor SDK module ships in this repository's dependency corpus (see
// DESIGN.md); SDKClient is written against this interface so that wiring a
// real SDK (e.g. the official Go SDK for the target ledger) is a matter of
// implementing SDKTransport, not touching the Inbound Monitor or Anchor
// Protocol. Treated the same way spec.md treats IPFS and smart-contract
// calls: an opaque external collaborator specified only at its interface.
type SDKTransport interface {
	SubmitMessage(ctx context.Context, topicID string, payload []byte) (string, error)
	GetMessages(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error)
}

// SDKClient is the fallback Client implementation used by the Inbound
// Monitor when the REST mirror-node read fails with a non-429 error
// (spec.md §4.1, §4.6 step 3).
type SDKClient struct {
	transport SDKTransport
}

// NewSDKClient wraps transport. A nil transport is valid — it simply means
// no SDK fallback is configured for this process, and Fetch/Submit report
// LedgerUnavailable instead of panicking.
func NewSDKClient(transport SDKTransport) *SDKClient {
	return &SDKClient{transport: transport}
}

func (c *SDKClient) Submit(ctx context.Context, topicID string, payload []byte) (TxReceipt, error) {
	if c.transport == nil {
		return TxReceipt{}, envelope.New(envelope.KindLedgerUnavailable, "no SDK transport configured")
	}
	txID, err := c.transport.SubmitMessage(ctx, topicID, payload)
	if err != nil {
		return TxReceipt{}, envelope.Wrap(envelope.KindLedgerUnavailable, "SDK submit", err)
	}
	return TxReceipt{TransactionID: txID}, nil
}

func (c *SDKClient) Fetch(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error) {
	if c.transport == nil {
		return nil, envelope.New(envelope.KindLedgerUnavailable, "no SDK transport configured")
	}
	records, err := c.transport.GetMessages(ctx, topicID, sinceSequence, limit, ascending)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindLedgerUnavailable, "SDK fetch", err)
	}
	return records, nil
}
