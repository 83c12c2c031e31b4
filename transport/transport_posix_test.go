//go:build !windows

package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/quillhaven/agentcore/api"
)

// dialSeqpacket connects a raw SOCK_SEQPACKET peer to name, for tests that
// need to drive a posixTransport listener from the other end without going
// through this package's own client-side code (there is none yet; peers
// are always an external process).
func dialSeqpacket(t *testing.T, name string) int {
	t.Helper()
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Close(fd) })
	require.NoError(t, unix.Connect(fd, &unix.SockaddrUnix{Name: name}))
	return fd
}

func TestPosixTransportAcceptReadWriteRoundTrip(t *testing.T) {
	name := t.TempDir() + "/agentcore-roundtrip.sock"

	listener, err := New()
	require.NoError(t, err)
	defer listener.Close()
	require.NoError(t, listener.CreateListening(name, true))
	require.NoError(t, listener.AcceptAsync())

	peerFd := dialSeqpacket(t, name)

	_, _, err = listener.CompleteReadiness()
	require.NoError(t, err)

	buf := make([]byte, 64)
	require.NoError(t, listener.ReadAsync(buf))

	want := []byte("hello agent")
	_, werr := unix.Write(peerFd, want)
	require.NoError(t, werr)

	n, end, rerr := listener.CompleteReadiness()
	require.NoError(t, rerr)
	assert.True(t, end)
	assert.Equal(t, want, buf[:n])

	require.NoError(t, listener.WriteAll([]byte("ack")))
	reply := make([]byte, 16)
	rn, rerr2 := unix.Read(peerFd, reply)
	require.NoError(t, rerr2)
	assert.Equal(t, "ack", string(reply[:rn]))
}

// TestPosixTransportSpuriousReadPendingDoesNotSignalEndOfMessage guards the
// fix for completeRead's EAGAIN branch: a benign, data-less wakeup on an
// armed read must not be reported as a completed message.
func TestPosixTransportSpuriousReadPendingDoesNotSignalEndOfMessage(t *testing.T) {
	name := t.TempDir() + "/agentcore-pending.sock"

	listener, err := New()
	require.NoError(t, err)
	defer listener.Close()
	require.NoError(t, listener.CreateListening(name, true))
	require.NoError(t, listener.AcceptAsync())

	dialSeqpacket(t, name)
	_, _, err = listener.CompleteReadiness()
	require.NoError(t, err)

	require.NoError(t, listener.ReadAsync(make([]byte, 64)))
	n, end, rerr := listener.CompleteReadiness()
	require.Error(t, rerr)
	kind, ok := api.KindOf(rerr)
	require.True(t, ok)
	assert.Equal(t, api.KindPending, kind)
	assert.Equal(t, 0, n)
	assert.False(t, end, "a pending read must not be reported as end-of-message")
}

// TestPosixWaitSetArmToleratesSharedListenFd guards the fix for the Arm-time
// EEXIST crash: every non-first pooled listener shares the same listening
// fd, and epoll must only be asked to watch it once.
func TestPosixWaitSetArmToleratesSharedListenFd(t *testing.T) {
	name := t.TempDir() + "/agentcore-sharedfd.sock"

	first, err := New()
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.CreateListening(name, true))
	require.NoError(t, first.AcceptAsync())

	second, err := New()
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.CreateListening(name, false))
	require.NoError(t, second.AcceptAsync())

	waitSet, err := NewWaitSet()
	require.NoError(t, err)
	defer waitSet.Close()
	stop, err := NewStopSource()
	require.NoError(t, err)
	defer stop.Close()

	sources := []WaitSource{first.ReadinessSource(), second.ReadinessSource()}
	require.NoError(t, waitSet.Arm(sources, stop))

	dialSeqpacket(t, name)

	type waitResult struct {
		idx int
		err error
	}
	resultCh := make(chan waitResult, 1)
	go func() {
		idx, err := waitSet.Wait()
		resultCh <- waitResult{idx, err}
	}()

	select {
	case res := <-resultCh:
		require.NoError(t, res.err)
		assert.Less(t, res.idx, len(sources))
	case <-time.After(2 * time.Second):
		stop.Signal()
		t.Fatal("waitSet.Wait never observed the pending connection on the shared listening fd")
	}
}
