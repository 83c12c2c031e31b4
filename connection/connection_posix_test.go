//go:build !windows

package connection

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/transport"
	"github.com/quillhaven/agentcore/wire"
)

// TestConnectionSurvivesSpuriousReadPending drives a Connection against a
// real SOCK_SEQPACKET transport and asserts that a read observed as Pending
// (EAGAIN with nothing queued) is re-armed rather than dispatched as a
// truncated message.
func TestConnectionSurvivesSpuriousReadPending(t *testing.T) {
	name := t.TempDir() + "/agentcore-conn-pending.sock"
	h := &recordingHandler{}

	conn, err := New(name, true, api.DefaultLogger(), transport.New)
	require.NoError(t, err)
	defer conn.Close()

	peerFd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	require.NoError(t, err)
	defer unix.Close(peerFd)
	require.NoError(t, unix.Connect(peerFd, &unix.SockaddrUnix{Name: name}))

	require.NoError(t, conn.HandleReadiness(h))
	require.Len(t, h.connected, 1)

	// Nothing has been written yet: this must observe Pending and simply
	// re-arm, not dispatch a bogus empty message.
	require.NoError(t, conn.HandleReadiness(h))
	require.Empty(t, h.requests)

	msg, err := wire.EncodePeerToAgent(&wire.PeerToAgent{
		Request: &wire.Request{RequestToken: "tok-1"},
	})
	require.NoError(t, err)
	_, werr := unix.Write(peerFd, msg)
	require.NoError(t, werr)

	require.NoError(t, conn.HandleReadiness(h))
	require.Len(t, h.requests, 1)
}
