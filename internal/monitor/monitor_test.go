package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
	"github.com/shane2512/AeXoWorK-sub001/internal/ledger"
	"github.com/shane2512/AeXoWorK-sub001/internal/registry"
	"github.com/shane2512/AeXoWorK-sub001/internal/store"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	mu    sync.Mutex
	calls []envelope.AnchorRecord
}

func (s *stubDispatcher) Verify(ctx context.Context, topicID string, rec envelope.AnchorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rec)
	return nil
}

func (s *stubDispatcher) snapshot() []envelope.AnchorRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]envelope.AnchorRecord(nil), s.calls...)
}

func TestPollOnceRoutesMessageAnchor(t *testing.T) {
	lc := ledger.NewFakeClient()
	dispatcher := &stubDispatcher{}
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: dispatcher}

	rec := envelope.AnchorRecord{Type: "message_anchor", MessageID: "m-1", Hash: "h-1"}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	_, err = lc.Submit(context.Background(), "0.0.100", raw)
	require.NoError(t, err)

	m.pollOnce(context.Background(), InboundTopic("0.0.100"))

	calls := dispatcher.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, "m-1", calls[0].MessageID)
	require.EqualValues(t, 1, m.Sequences.Get("0.0.100"))
}

func TestPollOnceSkipsHCS10ConnectionFrame(t *testing.T) {
	lc := ledger.NewFakeClient()
	dispatcher := &stubDispatcher{}

	var gotTopic string
	var gotFrame envelope.OffBusMessage
	handler := func(ctx context.Context, topicID string, frame envelope.OffBusMessage) {
		gotTopic = topicID
		gotFrame = frame
	}

	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: dispatcher, ConnectionHandler: handler}

	frame := struct {
		P         string `json:"p"`
		Op        string `json:"op"`
		MessageID string `json:"messageId"`
	}{P: "hcs-10", Op: "connection_request", MessageID: "conn-1"}
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	_, err = lc.Submit(context.Background(), "0.0.101", raw)
	require.NoError(t, err)

	m.pollOnce(context.Background(), ConnectionTopic("0.0.101"))

	require.Empty(t, dispatcher.snapshot())
	require.Equal(t, "0.0.101", gotTopic)
	require.Equal(t, "conn-1", gotFrame.MessageID)
}

func TestPollOnceAdvancesSequenceAndIgnoresUnrecognized(t *testing.T) {
	lc := ledger.NewFakeClient()
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: &stubDispatcher{}}

	_, err := lc.Submit(context.Background(), "0.0.102", []byte(`{"someOtherField":true}`))
	require.NoError(t, err)

	m.pollOnce(context.Background(), InboundTopic("0.0.102"))
	require.EqualValues(t, 1, m.Sequences.Get("0.0.102"))
}

type stubDirect struct {
	mu    sync.Mutex
	calls []envelope.Envelope
	metas []registry.Metadata
}

func (s *stubDirect) Dispatch(ctx context.Context, e *envelope.Envelope, meta registry.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, *e)
	s.metas = append(s.metas, meta)
}

func (s *stubDirect) snapshot() ([]envelope.Envelope, []registry.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]envelope.Envelope(nil), s.calls...), append([]registry.Metadata(nil), s.metas...)
}

func TestPollOnceRoutesDirectLedgerEnvelope(t *testing.T) {
	lc := ledger.NewFakeClient()
	direct := &stubDirect{}
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: &stubDispatcher{}, Direct: direct}

	e := envelope.New("aexowork.offers", "0.0.1001", "Offer", 1000)
	raw, err := e.Canonical()
	require.NoError(t, err)
	_, err = lc.Submit(context.Background(), "0.0.105", raw)
	require.NoError(t, err)

	m.pollOnce(context.Background(), InboundTopic("0.0.105"))

	envs, metas := direct.snapshot()
	require.Len(t, envs, 1)
	require.Equal(t, "aexowork.offers", envs[0].Subject)
	require.Equal(t, "0.0.1001", envs[0].FromAccountID)
	require.False(t, metas[0].Verified)
}

func TestPollOnceDropsDirectLedgerEnvelopeMissingSubject(t *testing.T) {
	lc := ledger.NewFakeClient()
	direct := &stubDirect{}
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: &stubDispatcher{}, Direct: direct}

	_, err := lc.Submit(context.Background(), "0.0.106", []byte(`{"someOtherField":true}`))
	require.NoError(t, err)

	m.pollOnce(context.Background(), InboundTopic("0.0.106"))

	envs, _ := direct.snapshot()
	require.Empty(t, envs)
}

func TestPollOnceSkipsOnFetchError(t *testing.T) {
	lc := ledger.NewFakeClient()
	lc.Throttle = 1
	dispatcher := &stubDispatcher{}
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: dispatcher}

	m.pollOnce(context.Background(), InboundTopic("0.0.103"))
	require.Empty(t, dispatcher.snapshot())
	require.EqualValues(t, 0, m.Sequences.Get("0.0.103"))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	lc := ledger.NewFakeClient()
	dispatcher := &stubDispatcher{}
	m := &Monitor{Ledger: lc, Sequences: store.NewSequenceTracker(), Dispatcher: dispatcher}

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx, []Topic{{ID: "0.0.104", Interval: 5 * time.Millisecond}})

	rec := envelope.AnchorRecord{Type: "message_anchor", MessageID: "m-2", Hash: "h-2"}
	raw, _ := json.Marshal(rec)
	_, err := lc.Submit(context.Background(), "0.0.104", raw)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(dispatcher.snapshot()) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
}
