package relay

import (
	"context"
	"testing"

	"github.com/shane2512/AeXoWorK-sub001/internal/anchor"
	"github.com/shane2512/AeXoWorK-sub001/internal/bus"
	"github.com/shane2512/AeXoWorK-sub001/internal/config"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/send"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestAgent(t *testing.T) (*Agent, *ledger.FakeClient) {
	t.Helper()
	kp, err := envelope.GenerateKeyPair()
	require.NoError(t, err)

	ledgerClient := ledger.NewFakeClient()
	protocol := &anchor.Protocol{
		Codec:         envelope.Base64Codec{},
		Verifier:      envelope.DefaultVerifier{},
		Ledger:        ledgerClient,
		Bus:           bus.NewFakeClient(),
		Store:         store.New(),
		Cache:         store.NewVerificationCache(64),
		FromAccountID: "0.0.5001",
		KeyPair:       kp,
	}

	peers := config.PeerTable{
		"sender":     {Name: "sender", AccountID: "0.0.1001", InboundTopicID: "0.0.9001"},
		"subscriber": {Name: "subscriber", AccountID: "0.0.2001", InboundTopicID: "0.0.9002"},
		"bystander":  {Name: "bystander", AccountID: "0.0.2002", InboundTopicID: "0.0.9003"},
	}

	pipeline := &send.Pipeline{
		Protocol: protocol,
		Ledger:   ledgerClient,
		Peers:    peers,
		Self:     config.Identity{AccountID: "0.0.5001"},
	}

	table := NewTable()
	table.Register("0.0.2001", []string{"aexowork.jobs"})

	return &Agent{Table: table, Send: pipeline, Peers: peers}, ledgerClient
}

func TestRelayForwardsToSubjectSubscribersExceptSender(t *testing.T) {
	agent, ledgerClient := newTestAgent(t)
	ctx := context.Background()

	e := envelope.New("aexowork.jobs", "0.0.1001", "JobPost", 1000)
	agent.OnEnvelope(ctx, e, registry.Metadata{FromAccountID: "0.0.1001", Verified: true})

	recs := ledgerClient.Messages("0.0.9002")
	require.Len(t, recs, 1)

	rec, ok := envelope.IsMessageAnchor(recs[0].Payload)
	require.True(t, ok)
	require.Equal(t, "0.0.5001", rec.FromAccountID)

	require.Empty(t, ledgerClient.Messages("0.0.9003"))
}

func TestRelaySkipsSenderEvenIfRegistered(t *testing.T) {
	agent, ledgerClient := newTestAgent(t)
	agent.Table.Register("0.0.1001", []string{"aexowork.jobs"})
	ctx := context.Background()

	e := envelope.New("aexowork.jobs", "0.0.1001", "JobPost", 1000)
	agent.OnEnvelope(ctx, e, registry.Metadata{FromAccountID: "0.0.1001", Verified: true})

	require.Empty(t, ledgerClient.Messages("0.0.9001"))
}

func TestTableUnregisterRemovesSubscriber(t *testing.T) {
	table := NewTable()
	table.Register("0.0.2001", []string{"aexowork.jobs"})
	require.Len(t, table.SubscribersTo("aexowork.jobs", ""), 1)

	table.Unregister("0.0.2001")
	require.Empty(t, table.SubscribersTo("aexowork.jobs", ""))
}
