// Package transport is the platform abstraction layer over a
// bidirectional, message-mode local endpoint (a Windows named pipe or a
// POSIX SOCK_SEQPACKET Unix domain socket). It is the only package in this
// module that contains OS-conditional code; everything above it talks to
// the Transport and WaitSet interfaces defined here.
package transport

// PeerIdentity is what a platform can learn about the process on the other
// end of an accepted connection.
type PeerIdentity struct {
	ProcessID  uint32
	BinaryPath string
}

// Transport is the capability surface one pooled Connection slot uses. A
// single Transport value is reused across its listening and connected
// phases: CreateListening is called once, then AcceptAsync/ReadAsync and
// CompleteReadiness cycle as the slot listens, serves one peer, and
// (via Disconnect) goes back to listening.
type Transport interface {
	// CreateListening binds this transport to name. first must be true for
	// exactly one Transport in a pool; that caller refuses creation if
	// another process already owns name, which is how duplicate-agent
	// detection works.
	CreateListening(name string, first bool) error

	// AcceptAsync arms this transport to accept one peer. If a peer is
	// already waiting, the readiness source is signalled synchronously
	// (i.e. before AcceptAsync returns).
	AcceptAsync() error

	// ReadAsync begins an asynchronous read into dst. Pending is not an
	// error: callers observe the outcome later via CompleteReadiness.
	ReadAsync(dst []byte) error

	// CompleteReadiness retrieves the outcome of whichever operation
	// (AcceptAsync or ReadAsync) is currently outstanding, once this
	// transport's ReadinessSource has signalled. For an accept completion
	// n and endOfMessage are meaningless; err is nil on success.
	CompleteReadiness() (n int, endOfMessage bool, err error)

	// WriteAll writes b to completion, looping over partial writes. It is
	// synchronous: replies are rare and bounded, so this does not need to
	// be asynchronous per §4.2.
	WriteAll(b []byte) error

	// PeerIdentity resolves the identity of the connected peer. Path
	// resolution is best-effort: failure to resolve it still yields a
	// valid PeerIdentity with an empty BinaryPath.
	PeerIdentity() (PeerIdentity, error)

	// CancelOutstanding cancels any in-flight AcceptAsync/ReadAsync.
	CancelOutstanding() error

	// Disconnect severs the current peer and prepares this transport to be
	// armed with AcceptAsync again, reusing the same listening resource.
	Disconnect() error

	// Close releases this transport's OS resources permanently.
	Close() error

	// ReadinessSource returns the OS primitive a WaitSet waits on for this
	// transport. It is valid for the lifetime of the transport.
	ReadinessSource() WaitSource
}

// New constructs the platform Transport implementation.
func New() (Transport, error) {
	return newTransport()
}
