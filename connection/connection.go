// Package connection implements the per-pipe-instance state machine of
// §4.3: a Connection owns one transport, one framing Reader, and toggles
// between LISTENING and CONNECTED as peers attach and depart.
package connection

import (
	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/codec"
	"github.com/quillhaven/agentcore/transport"
)

// TransportFactory constructs the platform Transport a Connection binds
// to. Production callers pass transport.New; tests pass a factory that
// returns an in-memory fake so Connection and Reactor logic can be
// exercised without OS resources.
type TransportFactory func() (transport.Transport, error)

// Connection is non-movable in spirit: once constructed it must be kept
// behind a stable pointer (a slice of *Connection, never a slice of
// Connection) because its readiness source is referenced by in-flight
// asynchronous I/O for as long as it is armed.
type Connection struct {
	name         string
	logger       api.Logger
	newTransport TransportFactory

	handle *transportHandle
	reader *codec.Reader

	connected bool
	peer      api.PeerInfo
}

// New constructs a Connection already armed to accept its first peer.
// first must be true for exactly one Connection per endpoint name; see
// transport.Transport.CreateListening for the duplicate-agent semantics
// that flag carries.
func New(name string, first bool, logger api.Logger, newTransport TransportFactory) (*Connection, error) {
	t, err := newTransport()
	if err != nil {
		return nil, err
	}
	if err := t.CreateListening(name, first); err != nil {
		return nil, err
	}
	if err := t.AcceptAsync(); err != nil {
		t.Close()
		return nil, err
	}
	return &Connection{
		name:         name,
		logger:       logger,
		newTransport: newTransport,
		handle:       newTransportHandle(t),
		reader:       codec.NewReader(),
	}, nil
}

// Connected reports whether this slot currently has a peer attached.
func (c *Connection) Connected() bool { return c.connected }

// Peer returns the identity populated at the last accept. It is the zero
// value while LISTENING.
func (c *Connection) Peer() api.PeerInfo { return c.peer }

// ID identifies this Connection's current physical transport in log lines.
// It changes when Reset detaches to a fresh transport.
func (c *Connection) ID() string { return c.handle.id }

// ReadinessSource returns the OS primitive the reactor's wait set should
// wait on for this Connection.
func (c *Connection) ReadinessSource() transport.WaitSource {
	return c.handle.t.ReadinessSource()
}

// HandleReadiness is the single dispatch entry point described in §4.3. A
// returned error means this Connection needs the reactor's reset/removal
// policy; the caller is expected to have captured Peer() before calling
// this if it needs it for an OnDisconnected notification, since an error
// here may be followed by Reset clearing it.
func (c *Connection) HandleReadiness(h api.Handler) error {
	if !c.connected {
		return c.handleAcceptCompletion(h)
	}
	return c.handleReadCompletion(h)
}

func (c *Connection) handleAcceptCompletion(h api.Handler) error {
	if _, _, err := c.handle.t.CompleteReadiness(); err != nil {
		if kind, ok := api.KindOf(err); ok && kind == api.KindPending {
			// Lost a thundering-herd race for this peer to another
			// listening slot; go back to waiting for the next one.
			return c.handle.t.AcceptAsync()
		}
		return err
	}

	peer, err := c.handle.t.PeerIdentity()
	if err != nil {
		c.logger.Printf("agentcore: connection %s: peer identity unavailable: %v", c.handle.id, err)
	}
	c.peer = api.PeerInfo{ProcessID: peer.ProcessID, BinaryPath: peer.BinaryPath}
	c.connected = true

	h.OnConnected(c.peer)

	c.reader.Reset()
	return c.handle.t.ReadAsync(c.reader.Cursor())
}

func (c *Connection) handleReadCompletion(h api.Handler) error {
	n, end, err := c.handle.t.CompleteReadiness()
	if err != nil {
		if kind, ok := api.KindOf(err); ok && kind == api.KindPending {
			// Spurious wakeup or a benign EAGAIN on an already-armed read;
			// nothing was reassembled, so just wait again without touching
			// the reader's cursor.
			return c.handle.t.ReadAsync(c.reader.Cursor())
		}
		if kind, ok := api.KindOf(err); !ok || kind != api.KindMoreData {
			return err
		}
	}

	c.reader.Advance(n, !end)
	if !end {
		return c.handle.t.ReadAsync(c.reader.Cursor())
	}

	msg := append([]byte(nil), c.reader.Message()...)
	c.reader.Reset()

	if derr := c.dispatch(h, msg); derr != nil {
		return derr
	}
	return c.handle.t.ReadAsync(c.reader.Cursor())
}

func (c *Connection) dispatch(h api.Handler, raw []byte) error {
	msg, err := codec.DecodePeerMessage(raw)
	if err != nil {
		return err
	}

	switch {
	case msg.Request != nil:
		if msg.Request.RequestToken == "" {
			return api.New(api.KindMissingToken, "request lacks a request token")
		}
		h.OnAnalysisRequested(newEvent(c.handle, c.peer, *msg.Request))
	case msg.Ack != nil:
		h.OnResponseAcknowledged(*msg.Ack)
	case msg.Cancel != nil:
		h.OnCancelRequests(*msg.Cancel)
	default:
		return api.New(api.KindMalformedMessage, "no variant populated")
	}
	return nil
}

// Reset returns this Connection to LISTENING, reusing its transport when
// no outstanding Event still references it, or detaching to a fresh one
// otherwise (see handle.go). Callers must have already fired
// OnDisconnected if this Connection was CONNECTED; Reset itself only
// manages transport and framing state.
func (c *Connection) Reset() error {
	c.connected = false
	c.peer = api.PeerInfo{}
	c.reader.Reset()

	if c.handle.soleOwner() {
		if err := c.handle.t.CancelOutstanding(); err != nil {
			c.logger.Printf("agentcore: connection %s: cancel outstanding i/o failed: %v", c.handle.id, err)
		}
		if err := c.handle.t.Disconnect(); err != nil {
			return err
		}
		return c.handle.t.AcceptAsync()
	}

	c.handle.release()
	t, err := c.newTransport()
	if err != nil {
		return err
	}
	if err := t.CreateListening(c.name, false); err != nil {
		return err
	}
	if err := t.AcceptAsync(); err != nil {
		t.Close()
		return err
	}
	c.handle = newTransportHandle(t)
	return nil
}

// Close releases this Connection's reference to its transport. If an
// outstanding Event still holds one, the transport is closed once that
// Event's Close releases it; an Event that is never closed keeps it open.
func (c *Connection) Close() error {
	c.handle.release()
	return nil
}
