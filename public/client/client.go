// Package client exposes thin constructors for the two external-facing
// transports (LedgerClient, BusClient) that an agent may want to use
// directly — for example to post an ad-hoc ledger message outside the
// Send Pipeline, or to subscribe to a raw bus subject for diagnostics —
// without reaching into the fabric's internal packages.
//
// Grounded on the teacher's public/client package, which exposes exactly
// this shape: constructor functions wrapping internal broker/storage
// clients for direct agent use alongside the higher-level AgentFramework.
package client

import (
	"github.com/shane2512/AeXoWorK-sub001/internal/bus"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
)

// NewLedgerClient returns a ledger.Client backed by the REST mirror-node
// with SDK fallback, for agents that need to read or write ledger topics
// outside the Anchor Protocol (e.g. a registration flow provisioning a
// new inbound topic).
func NewLedgerClient(network ledger.Network, sdkFallback ledger.SDKTransport) ledger.Client {
	return ledger.NewFallbackClient(network, sdkFallback)
}

// NewBusClient dials the low-latency pub/sub bus directly. Most agents
// should prefer FabricRuntime, which owns and monitors its own bus
// connection; this constructor exists for diagnostic tooling and for
// agents that need a second, independent bus subscription.
func NewBusClient(url string, debug bool) (bus.Client, error) {
	return bus.Dial(url, debug)
}
