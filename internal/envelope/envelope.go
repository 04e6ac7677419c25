// Package envelope defines the wire format exchanged between AeXoWorK agents
// and the typed error taxonomy used across the messaging fabric.
//
// An Envelope is the unit an agent hands to the Send Pipeline and the unit a
// handler receives from the Subscription Registry. It intentionally carries
// far less metadata than a general event-bus envelope: the fabric does not
// promise distributed tracing or hop counting, only subject-based routing,
// an optional direct recipient, and a signature over the canonical bytes.
//
// Called by: public/fabric (send/dispatch paths), internal/anchor, internal/send
// Calls: encoding/json
package envelope

import (
	"encoding/json"
	"sort"
)

// Envelope is the application-level message exchanged between agents.
// Additional application fields travel in Extra, preserved verbatim so
// that re-serializing an Envelope for hashing reproduces the sender's
// bytes even though the fabric itself never interprets those fields.
type Envelope struct {
	Subject       string `json:"subject"`
	FromAccountID string `json:"fromAccountId"`
	To            string `json:"to,omitempty"`
	Type          string `json:"type"`
	Timestamp     int64  `json:"timestamp"`
	Signature     string `json:"signature,omitempty"`

	// Extra carries opaque application fields (offerId, priceHBAR, ...).
	// Preserved as a raw map rather than unmarshaled into concrete types so
	// that Canonical() reproduces the sender's JSON bitwise.
	Extra map[string]json.RawMessage `json:"-"`
}

// New builds an Envelope with the required routing fields set. Callers
// attach application fields via SetField before handing it to the Send
// Pipeline.
func New(subject, fromAccountID, msgType string, timestamp int64) *Envelope {
	return &Envelope{
		Subject:       subject,
		FromAccountID: fromAccountID,
		Type:          msgType,
		Timestamp:     timestamp,
		Extra:         make(map[string]json.RawMessage),
	}
}

// SetField stores an opaque application field. value is marshaled to JSON.
func (e *Envelope) SetField(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[key] = raw
	return nil
}

// Field unmarshals an opaque application field into v. Returns false if the
// field is absent.
func (e *Envelope) Field(key string, v interface{}) (bool, error) {
	raw, ok := e.Extra[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

// Clone returns a shallow-copy-safe duplicate suitable for per-recipient
// mutation in the Send Pipeline (attaching subject/from without mutating
// the caller's original envelope).
func (e *Envelope) Clone() *Envelope {
	clone := *e
	if e.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			clone.Extra[k] = v
		}
	}
	return &clone
}

// canonicalMap flattens the known routing fields and the Extra fields into
// one key -> raw JSON map, the representation Canonical serializes for
// both wire transport and hashing. Canonical then emits every key, known
// or Extra, in a single lexicographic order — this is the JCS-style
// canonicalization documented in DESIGN.md (spec.md leaves the exact byte
// layout as an open question).
func (e *Envelope) canonicalMap() map[string]json.RawMessage {
	m := make(map[string]json.RawMessage, len(e.Extra)+6)
	for k, v := range e.Extra {
		m[k] = v
	}
	put := func(key string, v interface{}) {
		raw, _ := json.Marshal(v)
		m[key] = raw
	}
	put("subject", e.Subject)
	put("fromAccountId", e.FromAccountID)
	if e.To != "" {
		put("to", e.To)
	}
	put("type", e.Type)
	put("timestamp", e.Timestamp)
	if e.Signature != "" {
		put("signature", e.Signature)
	}
	return m
}

// Canonical serializes the envelope as compact JSON with lexicographically
// sorted keys. Two envelopes with identical field values always produce
// identical bytes, which is required for SHA-256(obfuscate(Canonical(e)))
// to be a stable anchor hash (spec.md §8, property 6).
func (e *Envelope) Canonical() ([]byte, error) {
	m := e.canonicalMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// MarshalJSON implements json.Marshaler using the same canonical layout as
// Canonical, so an Envelope round-trips through both transport JSON and
// hashing without two divergent serializers.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return e.Canonical()
}

// UnmarshalJSON implements json.Unmarshaler, splitting known routing fields
// from opaque application fields.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]func([]byte) error{
		"subject":       func(b []byte) error { return json.Unmarshal(b, &e.Subject) },
		"fromAccountId": func(b []byte) error { return json.Unmarshal(b, &e.FromAccountID) },
		"to":            func(b []byte) error { return json.Unmarshal(b, &e.To) },
		"type":          func(b []byte) error { return json.Unmarshal(b, &e.Type) },
		"timestamp":     func(b []byte) error { return json.Unmarshal(b, &e.Timestamp) },
		"signature":     func(b []byte) error { return json.Unmarshal(b, &e.Signature) },
	}
	e.Extra = make(map[string]json.RawMessage)
	for k, v := range raw {
		if fn, ok := known[k]; ok {
			if err := fn(v); err != nil {
				return err
			}
			continue
		}
		e.Extra[k] = v
	}
	return nil
}

// Validate enforces the routing invariants from spec.md §3: subject is
// required for anything the fabric is expected to route, and fromAccountId
// must be present so the Inbound Monitor can attribute the message.
func (e *Envelope) Validate() error {
	if e.Subject == "" {
		return &FabricError{Kind: KindIntegrityError, Message: "envelope missing subject"}
	}
	if e.FromAccountID == "" {
		return &FabricError{Kind: KindIntegrityError, Message: "envelope missing fromAccountId"}
	}
	return nil
}
