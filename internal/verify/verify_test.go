package verify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shane2512/AeXoWorK-sub001/internal/anchor"
	"github.com/shane2512/AeXoWorK-sub001/internal/bus"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T) (*Pipeline, *ledger.FakeClient) {
	t.Helper()
	kp, err := envelope.GenerateKeyPair()
	require.NoError(t, err)

	ledgerClient := ledger.NewFakeClient()
	reg := registry.New()

	p := &anchor.Protocol{
		Codec:         envelope.Base64Codec{},
		Verifier:      envelope.DefaultVerifier{},
		Ledger:        ledgerClient,
		Bus:           bus.NewFakeClient(),
		Store:         store.New(),
		Cache:         store.NewVerificationCache(64),
		FromAccountID: "0.0.1001",
		KeyPair:       kp,
	}

	return &Pipeline{Protocol: p, Ledger: ledgerClient, Registry: reg}, ledgerClient
}

func TestVerifyDispatchesOnConfirmedAnchor(t *testing.T) {
	pipe, ledgerClient := newTestPipeline(t)
	ctx := context.Background()

	e := envelope.New("aexowork.offers", "0.0.1001", "Offer", 1000)
	payload, err := e.Canonical()
	require.NoError(t, err)
	encrypted, err := pipe.Protocol.Codec.Obfuscate(payload)
	require.NoError(t, err)
	hash := envelope.Sha256Hex([]byte(encrypted))

	pipe.Protocol.Store.Put(envelope.OffBusMessage{
		MessageID:        "msg-verify-1",
		EncryptedPayload: encrypted,
		Hash:             hash,
		FromAccountID:    "0.0.1001",
	})

	rec := envelope.AnchorRecord{Type: "message_anchor", MessageID: "msg-verify-1", Hash: hash, FromAccountID: "0.0.1001"}
	anchorJSON, err := json.Marshal(rec)
	require.NoError(t, err)
	_, err = ledgerClient.Submit(ctx, "0.0.9999", anchorJSON)
	require.NoError(t, err)

	var dispatched *envelope.Envelope
	pipe.Registry.Subscribe("aexowork.offers", func(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
		dispatched = e
		require.True(t, meta.Verified)
		require.Equal(t, "0.0.1001", meta.FromAccountID)
	})

	err = pipe.Verify(ctx, "0.0.9999", rec)
	require.NoError(t, err)
	require.NotNil(t, dispatched)
	require.Equal(t, "aexowork.offers", dispatched.Subject)

	_, ok := pipe.Protocol.Store.Get("msg-verify-1")
	require.False(t, ok)
}

func TestVerifyLogsAndReturnsErrorOnIntegrityMismatch(t *testing.T) {
	pipe, _ := newTestPipeline(t)
	ctx := context.Background()

	pipe.Protocol.Store.Put(envelope.OffBusMessage{
		MessageID:        "msg-verify-2",
		EncryptedPayload: "dGFtcGVyZWQ=",
		Hash:             "not-the-real-hash",
	})

	var dispatched bool
	pipe.Registry.Subscribe(registry.Wildcard, func(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
		dispatched = true
	})

	rec := envelope.AnchorRecord{Type: "message_anchor", MessageID: "msg-verify-2", Hash: "not-the-real-hash"}
	err := pipe.Verify(ctx, "0.0.9999", rec)
	require.Error(t, err)
	require.False(t, dispatched)
}

func TestVerifyAbandonsSilentlyWhenPayloadNeverArrived(t *testing.T) {
	pipe, _ := newTestPipeline(t)
	ctx := context.Background()

	rec := envelope.AnchorRecord{Type: "message_anchor", MessageID: "never-arrived", Hash: "whatever"}
	err := pipe.Verify(ctx, "0.0.9999", rec)
	require.NoError(t, err)
}
