// Package fabric is the agent-facing API surface: a single FabricRuntime
// that wires configuration, identity, ledger, bus, envelope crypto, the
// Anchor Protocol, Subscription Registry, Inbound Monitor, Send Pipeline,
// and Verification Pipeline into one object an agent process constructs
// once at startup.
//
// Grounded on the teacher's public/agent.BaseAgent: a single struct built
// from config plus a handful of constructed collaborators, exposing a
// small public surface (Subscribe/Publish/Start/Stop) to the embedding
// agent binary, with an idempotent Init guarded the same way the teacher
// guards its own one-time broker connection setup.
package fabric

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/shane2512/AeXoWorK-sub001/internal/anchor"
	"github.com/shane2512/AeXoWorK-sub001/internal/bus"
	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/monitor"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/send"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
	"github.com/shane2512/AeXoWorK-sub001/internal/verify"
)

// Options configures one FabricRuntime. RolePrefix selects which
// registered agent role's environment variables LoadIdentity reads
// (spec.md §6).
type Options struct {
	RolePrefix  string
	ConfigPath  string
	SDKFallback ledger.SDKTransport
}

// ConnectionStatus is the operational surface spec.md §6 requires every
// agent expose: `{isInitialized, agentAccountId, inboundTopicId,
// outboundTopicId, activeConnections, subjects[]}`. The fields below beyond
// those named are ambient additions for an embedding agent's own
// health/status endpoint, kept alongside rather than in place of the
// spec-named ones.
type ConnectionStatus struct {
	IsInitialized     bool
	AgentAccountID    string
	InboundTopicID    string
	OutboundTopicID   string
	ActiveConnections int
	Subjects          []string

	BusConnected         bool
	UseOffChainMessaging bool
	LedgerNetwork        ledger.Network
	MessageStoreSize     int
}

// FabricRuntime is the single object an agent embeds. Every exported field
// below is constructed once by New and then read-only for the life of the
// process, matching spec.md §5's "Known-Peer Table: immutable after
// startup" and the broader "no locking beyond what each collaborator
// already owns" concurrency model.
type FabricRuntime struct {
	Identity config.Identity
	Process  config.Process
	Peers    config.PeerTable
	KeyPair  *envelope.KeyPair

	Ledger   ledger.Client
	Bus      bus.Client
	Registry *registry.Registry
	Store    *store.Store
	Cache    *store.VerificationCache

	Protocol *anchor.Protocol
	Monitor  *monitor.Monitor
	Send     *send.Pipeline
	Verify   *verify.Pipeline

	once       sync.Once
	cancel     context.CancelFunc
	offChainMu sync.RWMutex
	offChain   bool

	initMu            sync.RWMutex
	initialized       bool
	activeConnections int
}

// New constructs a FabricRuntime from opts. It performs all the
// blocking/fallible setup (config load, identity load, key parse, bus
// dial) so that Init itself only needs to start background loops. A
// non-nil error here is always a KindConfigError per spec.md §7's startup
// failure policy: "missing credentials: process exits with a clear message
// naming the required environment keys." A failed bus dial is not
// returned: it is logged and the runtime falls back to direct-ledger mode.
func New(opts Options) (*FabricRuntime, error) {
	identity, err := config.LoadIdentity(opts.RolePrefix)
	if err != nil {
		return nil, err
	}

	proc, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	kp, err := envelope.ParsePrivateKeyHex(privateKeyEnvValue(opts.RolePrefix))
	if err != nil {
		return nil, err
	}

	ledgerClient := ledger.NewFallbackClient(proc.LedgerNetwork, opts.SDKFallback)

	var busClient bus.Client
	offChain := proc.UseOffChainMessaging
	if offChain {
		nc, dialErr := bus.Dial(proc.BusURL, false)
		if dialErr != nil {
			// Fallback to direct-ledger mode for the process lifetime
			// (spec.md §4.2): log and continue rather than fail startup.
			log.Printf("fabric: bus unavailable at startup, falling back to direct-ledger mode: %v", dialErr)
			offChain = false
			busClient = bus.NewFakeClient()
			busClient.(*bus.FakeClient).SetConnected(false)
		} else {
			busClient = nc
		}
	} else {
		busClient = bus.NewFakeClient()
		busClient.(*bus.FakeClient).SetConnected(false)
	}

	msgStore := store.New()
	cache := store.NewVerificationCache(1024)
	reg := registry.New()
	sequences := store.NewSequenceTracker()

	protocol := &anchor.Protocol{
		Codec:         envelope.Base64Codec{},
		Verifier:      envelope.DefaultVerifier{},
		Ledger:        ledgerClient,
		Bus:           busClient,
		Store:         msgStore,
		Cache:         cache,
		FromAccountID: identity.AccountID,
		KeyPair:       kp,
	}

	verifyPipeline := &verify.Pipeline{Protocol: protocol, Ledger: ledgerClient, Registry: reg}

	peers := proc.Index()
	sendPipeline := &send.Pipeline{
		Protocol: protocol,
		Ledger:   ledgerClient,
		Peers:    peers,
		Self:     identity,
	}

	fr := &FabricRuntime{
		Identity: identity,
		Process:  proc,
		Peers:    peers,
		KeyPair:  kp,
		Ledger:   ledgerClient,
		Bus:      busClient,
		Registry: reg,
		Store:    msgStore,
		Cache:    cache,
		Protocol: protocol,
		Send:     sendPipeline,
		Verify:   verifyPipeline,
		offChain: offChain,
	}
	sendPipeline.UseOffChainMessaging = fr.UseOffChainMessaging

	fr.Monitor = &monitor.Monitor{
		Ledger:     ledgerClient,
		Sequences:  sequences,
		Dispatcher: verifyPipeline,
		Direct:     reg,
	}

	return fr, nil
}

// UseOffChainMessaging reports the current off-chain-messaging flag,
// which may have flipped from true to false exactly once, at startup,
// per spec.md §4.2's fallback policy. It never flips back.
func (fr *FabricRuntime) UseOffChainMessaging() bool {
	fr.offChainMu.RLock()
	defer fr.offChainMu.RUnlock()
	return fr.offChain
}

// Init starts the Inbound Monitor's polling loops and the Message
// Store's sweeper. It is idempotent: calling it more than once is a
// no-op, matching the teacher's sync.Once-guarded connection setup.
func (fr *FabricRuntime) Init(ctx context.Context) {
	fr.once.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		fr.cancel = cancel

		fr.Store.StartSweeper()

		// Only the agent's own inbound topic is polled: HCS-10 connection
		// requests and message anchors both land there (monitor.route
		// classifies by payload, not by which topic a record came from), and
		// nothing ever writes incoming records to an agent's outbound topic
		// (spec.md §3 defines it as the agent's own publish target). Dynamic
		// per-connection topics (the real HCS-10 notion monitor.ConnectionTopic
		// models) are out of scope here — see DESIGN.md.
		topics := []monitor.Topic{monitor.InboundTopic(fr.Identity.InboundTopicID)}
		fr.Monitor.Start(runCtx, topics)

		activeConnections := len(topics)
		if nc, ok := fr.Bus.(*bus.NatsClient); ok {
			sub, err := nc.Subscribe(runCtx, bus.Subject(fr.Identity.AccountID))
			if err != nil {
				log.Printf("fabric: subscribe to own off-bus subject: %v", err)
			} else {
				activeConnections++
				go func() {
					for raw := range sub {
						fr.Protocol.OnOffBusMessage(raw)
					}
				}()
			}
		}

		fr.initMu.Lock()
		fr.initialized = true
		fr.activeConnections = activeConnections
		fr.initMu.Unlock()
	})
}

// Stop cancels all background loops started by Init and closes the bus
// connection (spec.md §5: "process shutdown cancels all polling timers
// and drops pending verifications").
func (fr *FabricRuntime) Stop() {
	if fr.cancel != nil {
		fr.cancel()
	}
	fr.Store.Stop()
	fr.Bus.Close()
}

// Subscribe registers handler for subject on the Subscription Registry.
func (fr *FabricRuntime) Subscribe(subject string, handler registry.Handler) {
	fr.Registry.Subscribe(subject, handler)
}

// Publish hands e to the Send Pipeline under subject (spec.md §4.7).
func (fr *FabricRuntime) Publish(ctx context.Context, subject string, e *envelope.Envelope) (send.Result, error) {
	return fr.Send.Send(ctx, subject, e)
}

// ConnectionStatus reports the fabric's live connectivity state (spec.md
// §6): `{isInitialized, agentAccountId, inboundTopicId, outboundTopicId,
// activeConnections, subjects[]}` plus a few ambient fields for an
// embedding agent's own status endpoint.
func (fr *FabricRuntime) ConnectionStatus() ConnectionStatus {
	fr.initMu.RLock()
	initialized := fr.initialized
	activeConnections := fr.activeConnections
	fr.initMu.RUnlock()

	return ConnectionStatus{
		IsInitialized:     initialized,
		AgentAccountID:    fr.Identity.AccountID,
		InboundTopicID:    fr.Identity.InboundTopicID,
		OutboundTopicID:   fr.Identity.OutboundTopicID,
		ActiveConnections: activeConnections,
		Subjects:          fr.Registry.Subjects(),

		BusConnected:         fr.Bus.IsConnected(),
		UseOffChainMessaging: fr.UseOffChainMessaging(),
		LedgerNetwork:        fr.Process.LedgerNetwork,
		MessageStoreSize:     fr.Store.Len(),
	}
}

func privateKeyEnvValue(rolePrefix string) string {
	rc := config.RoleConfig(rolePrefix)
	return os.Getenv(rc.PrivateKeyKey)
}
