package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadIdentityMissingKeys(t *testing.T) {
	os.Unsetenv("TESTROLE_ACCOUNT_ID")
	os.Unsetenv("TESTROLE_PRIVATE_KEY")
	os.Unsetenv("TESTROLE_INBOUND_TOPIC")
	os.Unsetenv("TESTROLE_OUTBOUND_TOPIC")

	_, err := LoadIdentity("TESTROLE")
	require.Error(t, err)
}

func TestLoadIdentitySuccess(t *testing.T) {
	t.Setenv("TESTROLE_ACCOUNT_ID", "0.0.1001")
	t.Setenv("TESTROLE_PRIVATE_KEY", "deadbeef")
	t.Setenv("TESTROLE_INBOUND_TOPIC", "0.0.2001")
	t.Setenv("TESTROLE_OUTBOUND_TOPIC", "0.0.2002")

	id, err := LoadIdentity("TESTROLE")
	require.NoError(t, err)
	require.Equal(t, "0.0.1001", id.AccountID)
	require.Equal(t, "0.0.2001", id.InboundTopicID)
	require.Equal(t, "0.0.2002", id.OutboundTopicID)
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	proc, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	require.True(t, proc.UseOffChainMessaging)
}

func TestPeerTableLookups(t *testing.T) {
	proc := Process{Peers: []Peer{
		{Name: "worker-agent", AccountID: "0.0.1002", InboundTopicID: "0.0.2002"},
		{Name: "verifier-agent", AccountID: "0.0.1003", InboundTopicID: "0.0.2003"},
	}}
	table := proc.Index()

	peer, ok := table["worker-agent"]
	require.True(t, ok)
	require.Equal(t, "0.0.1002", peer.AccountID)

	byAccount, ok := table.ByAccountID("0.0.1003")
	require.True(t, ok)
	require.Equal(t, "verifier-agent", byAccount.Name)

	_, ok = table.ByAccountID("0.0.9999")
	require.False(t, ok)
}
