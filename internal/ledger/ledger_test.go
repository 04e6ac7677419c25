package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeClientFetchStrictlyNewer(t *testing.T) {
	fc := NewFakeClient()
	ctx := context.Background()

	_, err := fc.Submit(ctx, "0.0.2001", []byte("a"))
	require.NoError(t, err)
	_, err = fc.Submit(ctx, "0.0.2001", []byte("b"))
	require.NoError(t, err)

	recs, err := fc.Fetch(ctx, "0.0.2001", 0, 100, true)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, uint64(1), recs[0].Sequence)
	require.Equal(t, uint64(2), recs[1].Sequence)

	recs, err = fc.Fetch(ctx, "0.0.2001", 1, 100, true)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, uint64(2), recs[0].Sequence)
}

func TestFakeClientThrottle(t *testing.T) {
	fc := NewFakeClient()
	fc.Throttle = 1
	ctx := context.Background()

	_, err := fc.Fetch(ctx, "0.0.2001", 0, 100, true)
	require.Error(t, err)

	_, err = fc.Fetch(ctx, "0.0.2001", 0, 100, true)
	require.NoError(t, err)
}

type recordingSDK struct {
	submitted [][]byte
}

func (r *recordingSDK) SubmitMessage(ctx context.Context, topicID string, payload []byte) (string, error) {
	r.submitted = append(r.submitted, payload)
	return "sdk-tx-1", nil
}

func (r *recordingSDK) GetMessages(ctx context.Context, topicID string, sinceSequence uint64, limit int, ascending bool) ([]Record, error) {
	return nil, nil
}

func TestSDKClientSubmit(t *testing.T) {
	sdk := &recordingSDK{}
	client := NewSDKClient(sdk)

	receipt, err := client.Submit(context.Background(), "0.0.2001", []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, "sdk-tx-1", receipt.TransactionID)
	require.Len(t, sdk.submitted, 1)
}

func TestSDKClientNilTransport(t *testing.T) {
	client := NewSDKClient(nil)
	_, err := client.Submit(context.Background(), "0.0.2001", []byte("x"))
	require.Error(t, err)
	_, err = client.Fetch(context.Background(), "0.0.2001", 0, 10, true)
	require.Error(t, err)
}
