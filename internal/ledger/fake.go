package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shane2512/AeXoWorK-sub001/internal/envelope"
)

// FakeClient is an in-memory Client used across the fabric's test suite in
// place of a live mirror-node/SDK pair, grounded on the teacher's own
// preference for lightweight hand-rolled fakes over network mocks in
// public/agent/*_test.go.
type FakeClient struct {
	mu     sync.Mutex
	topics map[string][]Record
	// Throttle, when set, causes the next N Fetch calls against any topic
	// to return a Throttled error, simulating a 429.
	Throttle int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{topics: make(map[string][]Record)}
}

func (f *FakeClient) Submit(ctx context.Context, topicID string, payload []byte) (TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seq := uint64(len(f.topics[topicID]) + 1)
	f.topics[topicID] = append(f.topics[topicID], Record{
		Sequence:           seq,
		PayerAccountID:     "fake-payer",
		ConsensusTimestamp: time.Now(),
		Payload:            append([]byte(nil), payload...),
	})
	return TxReceipt{TransactionID: uuid.New().String()}, nil
}

func (f *FakeClient) Fetch(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Throttle > 0 {
		f.Throttle--
		return nil, envelope.New(envelope.KindThrottled, "fake client simulated 429")
	}

	all := f.topics[topicID]
	var out []Record
	for _, r := range all {
		if r.Sequence > sinceSequence {
			out = append(out, r)
		}
	}
	if !ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Messages returns a snapshot of everything submitted to topicID, for
// assertions in tests.
func (f *FakeClient) Messages(topicID string) []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Record, len(f.topics[topicID]))
	copy(out, f.topics[topicID])
	return out
}
