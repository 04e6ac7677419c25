package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeClientPublishSubscribe(t *testing.T) {
	fc := NewFakeClient()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := fc.Subscribe(ctx, Subject("0.0.1002"))
	require.NoError(t, err)

	require.NoError(t, fc.Publish(Subject("0.0.1002"), []byte("hello")))

	select {
	case msg := <-ch:
		require.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestFakeClientDisconnected(t *testing.T) {
	fc := NewFakeClient()
	fc.SetConnected(false)
	require.False(t, fc.IsConnected())
	err := fc.Publish("offchain.x", []byte("y"))
	require.Error(t, err)
}

func TestSubjectNaming(t *testing.T) {
	require.Equal(t, "offchain.0.0.1002", Subject("0.0.1002"))
}
