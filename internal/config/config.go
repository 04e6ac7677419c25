// Package config loads process-wide fabric configuration: the ledger
// network, bus URL, registered agent role prefixes, and per-agent
// credentials. Grounded on the teacher's internal/config.Config (YAML file,
// gopkg.in/yaml.v3) generalized from cell/broker/support settings to the
// fabric's ledgerNetwork/busUrl/agent-role settings (spec.md §6), and on
// public/agent.StandardConfigResolver's layered resolution order, here
// collapsed to "file provides defaults, environment overrides" per
// spec.md §9's AgentRoleConfig re-architecture note.
package config

import (
	"fmt"
	"os"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"gopkg.in/yaml.v3"
)

// Registered agent role prefixes (spec.md §6).
const (
	RoleClientAgent       = "CLIENT_AGENT"
	RoleWorkerAgent       = "WORKER_AGENT"
	RoleVerificationAgent = "VERIFICATION_AGENT"
	RoleReputeAgent       = "REPUTE_AGENT"
	RoleDisputeAgent      = "DISPUTE_AGENT"
	RoleDataAgent         = "DATA_AGENT"
	RoleEscrowAgent       = "ESCROW_AGENT"
	RoleMarketplaceAgent  = "MARKETPLACE_AGENT"
)

// AgentRoleConfig maps a role prefix to the four environment variable
// names that carry its credentials, replacing the "dynamic configuration
// via environment naming" pattern spec.md §9 flags for re-architecture
// with an explicit, inspectable mapping function.
type AgentRoleConfig struct {
	Role             string
	AccountIDKey     string
	PrivateKeyKey    string
	InboundTopicKey  string
	OutboundTopicKey string
}

// RoleConfig returns the AgentRoleConfig for a registered role prefix.
func RoleConfig(prefix string) AgentRoleConfig {
	return AgentRoleConfig{
		Role:             prefix,
		AccountIDKey:     prefix + "_ACCOUNT_ID",
		PrivateKeyKey:    prefix + "_PRIVATE_KEY",
		InboundTopicKey:  prefix + "_INBOUND_TOPIC",
		OutboundTopicKey: prefix + "_OUTBOUND_TOPIC",
	}
}

// Identity mirrors spec.md §3 AgentIdentity, minus the in-memory key pair
// (held separately — see internal/envelope.KeyPair — so that Identity
// itself remains safely loggable).
type Identity struct {
	AccountID       string
	InboundTopicID  string
	OutboundTopicID string
	ProfileTopicID  string
}

// LoadIdentity resolves an agent's identity from its role's environment
// variables. Missing keys are a fatal ConfigError at startup, per
// spec.md §7: "Missing credentials: process exits with a clear message
// naming the required environment keys."
func LoadIdentity(prefix string) (Identity, error) {
	rc := RoleConfig(prefix)

	accountID := os.Getenv(rc.AccountIDKey)
	privateKey := os.Getenv(rc.PrivateKeyKey)
	inboundTopic := os.Getenv(rc.InboundTopicKey)
	outboundTopic := os.Getenv(rc.OutboundTopicKey)

	var missing []string
	if accountID == "" {
		missing = append(missing, rc.AccountIDKey)
	}
	if privateKey == "" {
		missing = append(missing, rc.PrivateKeyKey)
	}
	if inboundTopic == "" {
		missing = append(missing, rc.InboundTopicKey)
	}
	if outboundTopic == "" {
		missing = append(missing, rc.OutboundTopicKey)
	}
	if len(missing) > 0 {
		return Identity{}, envelope.New(envelope.KindConfigError,
			fmt.Sprintf("missing required environment variables for role %s: %v", prefix, missing))
	}

	return Identity{
		AccountID:       accountID,
		InboundTopicID:  inboundTopic,
		OutboundTopicID: outboundTopic,
	}, nil
}

// Peer is one entry of the Known-Peer Table (spec.md §3): a logical agent
// name resolved to its account id and inbound topic. Subjects lists the
// subjects this peer wants forwarded to it by a Relay Agent (spec.md
// §4.9's registration table is `(agentAccountId, subjects[])`); it is
// unused outside the relay.
type Peer struct {
	Name           string   `yaml:"name"`
	AccountID      string   `yaml:"accountId"`
	InboundTopicID string   `yaml:"inboundTopicId"`
	Subjects       []string `yaml:"subjects"`
}

// Process holds the process-wide options recognized in spec.md §6.
type Process struct {
	LedgerNetwork        ledger.Network `yaml:"ledgerNetwork"`
	BusURL               string         `yaml:"busUrl"`
	UseOffChainMessaging bool           `yaml:"useOffChainMessaging"`
	Peers                []Peer         `yaml:"peers"`

	AgentName        string   `yaml:"agentName"`
	AgentDescription string   `yaml:"agentDescription"`
	Capabilities     []string `yaml:"capabilities"`
}

// Default returns the process defaults: testnet, off-chain messaging
// enabled (spec.md §6 "useOffChainMessaging — default true").
func Default() Process {
	return Process{
		LedgerNetwork:        ledger.NetworkTestnet,
		UseOffChainMessaging: true,
	}
}

// Load reads a YAML process configuration file, layering it over Default().
// A missing file is not an error — callers fall back to Default() plus
// whatever environment-derived Identity/Peer data they load separately,
// matching the teacher's "file config as base, nothing-found is fine"
// resolution philosophy.
func Load(path string) (Process, error) {
	proc := Default()
	if path == "" {
		return proc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return proc, nil
		}
		return proc, envelope.Wrap(envelope.KindConfigError, "read config file", err)
	}
	if err := yaml.Unmarshal(data, &proc); err != nil {
		return proc, envelope.Wrap(envelope.KindConfigError, "parse config file", err)
	}
	return proc, nil
}

// PeerTable indexes Peers by logical name for O(1) Send Pipeline lookups.
type PeerTable map[string]Peer

// Index builds a PeerTable from the configured peer list.
func (p Process) Index() PeerTable {
	table := make(PeerTable, len(p.Peers))
	for _, peer := range p.Peers {
		table[peer.Name] = peer
	}
	return table
}

// ByAccountID finds a peer by its ledger account id rather than logical
// name — used when a Send Pipeline caller already has an accountId (the
// `to` field of an envelope) rather than a logical peer name.
func (t PeerTable) ByAccountID(accountID string) (Peer, bool) {
	for _, p := range t {
		if p.AccountID == accountID {
			return p, true
		}
	}
	return Peer{}, false
}
