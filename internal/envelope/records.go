package envelope

import "encoding/json"

// AnchorVersion is the protocol version tag stamped on every anchor record.
const AnchorVersion = "1.0"

// AnchorRecord is the on-ledger proof described in spec.md §3/§6. It is
// posted, JSON-encoded, to the recipient's inbound topic.
type AnchorRecord struct {
	Type          string `json:"type"` // literal "message_anchor"
	MessageID     string `json:"messageId"`
	Hash          string `json:"hash"`
	Timestamp     int64  `json:"timestamp"`
	Signature     string `json:"signature"`
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Version       string `json:"version"`
}

// IsMessageAnchor reports whether a raw ledger payload decodes to an
// anchor record, used by the Inbound Monitor's classification step
// (spec.md §4.6 step 4c).
func IsMessageAnchor(raw []byte) (*AnchorRecord, bool) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	if probe.Type != "message_anchor" {
		return nil, false
	}
	var rec AnchorRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// OffBusMessage is the ephemeral payload carried over the low-latency bus
// on subject `offchain.<recipientAccountId>` (spec.md §3/§6).
type OffBusMessage struct {
	MessageID        string `json:"messageId"`
	EncryptedPayload string `json:"encryptedPayload"`
	Hash             string `json:"hash"`
	Timestamp        int64  `json:"timestamp"`
	Signature        string `json:"signature"`
	FromAccountID    string `json:"fromAccountId"`
}

// IsHCS10ConnectionFrame detects legacy protocol frames the Inbound Monitor
// must skip per spec.md §4.6 step 4b: JSON objects carrying `p == "hcs-10"`
// and `op` in {connection_request, connection_created}.
func IsHCS10ConnectionFrame(raw []byte) bool {
	var probe struct {
		P  string `json:"p"`
		Op string `json:"op"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	if probe.P != "hcs-10" {
		return false
	}
	return probe.Op == "connection_request" || probe.Op == "connection_created"
}
