package connection

import (
	"sync"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/codec"
	"github.com/quillhaven/agentcore/wire"
)

// reqEvent is the api.Event implementation handed to Handler.OnAnalysisRequested.
// It borrows its Connection's transport through a reference-counted
// transportHandle rather than owning it, so it can still Send after the
// Connection that produced it has reset or been removed from the pool.
type reqEvent struct {
	mu      sync.Mutex
	handle  *transportHandle
	peer    api.PeerInfo
	request wire.Request
	resp    wire.Response
	sent    bool
	closed  bool
}

func newEvent(handle *transportHandle, peer api.PeerInfo, req wire.Request) *reqEvent {
	handle.acquire()
	ev := &reqEvent{handle: handle, peer: peer, request: req}
	api.InitResponse(&ev.resp, req)
	return ev
}

func (e *reqEvent) Peer() api.PeerInfo      { return e.peer }
func (e *reqEvent) Request() wire.Request   { return e.request }
func (e *reqEvent) Response() *wire.Response {
	return &e.resp
}

func (e *reqEvent) Send() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return api.New(api.KindClosed, "event is closed")
	}
	if e.sent {
		return api.New(api.KindAlreadySent, "response already sent")
	}

	b, err := codec.EncodeAgentMessage(&e.resp)
	if err != nil {
		return api.New(api.KindMalformedMessage, "encode failed").WithContext("cause", err.Error())
	}
	if err := e.handle.t.WriteAll(b); err != nil {
		return err
	}
	e.sent = true
	return nil
}

func (e *reqEvent) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.handle.release()
	return nil
}
