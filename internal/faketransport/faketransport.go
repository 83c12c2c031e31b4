// Package faketransport is an in-memory transport.Transport used by
// connection, reactor, and facade tests. It is a setter-based fake for
// deterministic reactor tests: plain methods to script behavior (Attach,
// Enqueue, SetCreateError) and plain methods to inspect what happened
// (SentMessages, DisconnectCount).
package faketransport

import (
	"sync"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/transport"
)

type armMode int

const (
	armNone armMode = iota
	armAccept
	armRead
)

// Transport is a single pooled slot's fake endpoint. Construct one per
// Connection via a Factory so each slot's readiness is independent.
type Transport struct {
	mu sync.Mutex

	name  string
	first bool

	ready chan struct{}
	mode  armMode
	dst   []byte

	createErr error
	writeErr  error

	pendingIdentity    transport.PeerIdentity
	pendingIdentityErr error
	havePending        bool

	identity transport.PeerIdentity

	inbox [][]byte

	sent            [][]byte
	disconnectCount int
	cancelCount     int
	closed          bool
}

// NewFactory returns a Factory (whose New is connection.TransportFactory-compatible) that
// hands out fresh Transports, remembering every one it created so tests
// can script and inspect the pool's slots by index.
func NewFactory() *Factory {
	return &Factory{}
}

// Factory records every Transport it creates, in creation order.
type Factory struct {
	mu      sync.Mutex
	created []*Transport
	nextErr error
}

func (f *Factory) New() (transport.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextErr != nil {
		err := f.nextErr
		f.nextErr = nil
		return nil, err
	}
	t := &Transport{ready: make(chan struct{}, 1)}
	f.created = append(f.created, t)
	return t, nil
}

// SetNextError makes the next New call fail once.
func (f *Factory) SetNextError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextErr = err
}

// Slot returns the i-th Transport this factory has created.
func (f *Factory) Slot(i int) *Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[i]
}

// Count returns how many Transports this factory has created so far.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (t *Transport) CreateListening(name string, first bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.createErr != nil {
		return t.createErr
	}
	t.name, t.first = name, first
	return nil
}

func (t *Transport) AcceptAsync() error {
	t.mu.Lock()
	t.mode = armAccept
	pending := t.havePending
	t.mu.Unlock()
	if pending {
		t.signal()
	}
	return nil
}

func (t *Transport) ReadAsync(dst []byte) error {
	t.mu.Lock()
	t.mode = armRead
	t.dst = dst
	pending := len(t.inbox) > 0
	t.mu.Unlock()
	if pending {
		t.signal()
	}
	return nil
}

func (t *Transport) CompleteReadiness() (int, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.mode {
	case armAccept:
		if !t.havePending {
			return 0, true, api.New(api.KindPending, "no peer waiting")
		}
		t.identity = t.pendingIdentity
		identErr := t.pendingIdentityErr
		t.havePending = false
		t.mode = armNone
		return 0, true, identErr
	case armRead:
		if len(t.inbox) == 0 {
			return 0, true, api.New(api.KindPending, "no message queued")
		}
		msg := t.inbox[0]
		t.inbox = t.inbox[1:]
		n := copy(t.dst, msg)
		t.dst = nil
		t.mode = armNone
		return n, true, nil
	default:
		return 0, true, api.New(api.KindPending, "nothing armed")
	}
}

func (t *Transport) WriteAll(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.writeErr != nil {
		return t.writeErr
	}
	t.sent = append(t.sent, append([]byte(nil), b...))
	return nil
}

func (t *Transport) PeerIdentity() (transport.PeerIdentity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity, nil
}

func (t *Transport) CancelOutstanding() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelCount++
	t.mode = armNone
	return nil
}

func (t *Transport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnectCount++
	t.mode = armNone
	t.identity = transport.PeerIdentity{}
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Transport) ReadinessSource() transport.WaitSource {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *Transport) signal() {
	select {
	case t.ready <- struct{}{}:
	default:
	}
}

// Attach simulates a peer connecting to this slot once it is armed to
// accept. With a nil err, the next CompleteReadiness completes the accept
// and PeerIdentity then reports identity. A non-nil err is returned from
// that CompleteReadiness instead, so the accept itself fails; PeerIdentity
// never returns an error.
func (t *Transport) Attach(identity transport.PeerIdentity, err error) {
	t.mu.Lock()
	t.pendingIdentity, t.pendingIdentityErr, t.havePending = identity, err, true
	armed := t.mode == armAccept
	t.mu.Unlock()
	if armed {
		t.signal()
	}
}

// Enqueue queues one whole message for the next armed ReadAsync to
// return in a single CompleteReadiness call (no chunked fragmentation;
// that is covered at the codec level).
func (t *Transport) Enqueue(msg []byte) {
	t.mu.Lock()
	t.inbox = append(t.inbox, append([]byte(nil), msg...))
	armed := t.mode == armRead
	t.mu.Unlock()
	if armed {
		t.signal()
	}
}

func (t *Transport) SetCreateError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.createErr = err
}

func (t *Transport) SetWriteError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = err
}

func (t *Transport) SentMessages() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *Transport) DisconnectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectCount
}

func (t *Transport) CancelCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelCount
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
