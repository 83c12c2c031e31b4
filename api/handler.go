package api

import "github.com/quillhaven/agentcore/wire"

// Handler receives every connection and protocol event the reactor
// dispatches. OnAnalysisRequested has no default action and must be
// implemented; the others may be left as no-ops by embedding BaseHandler.
//
// Handler methods run on the reactor's single thread. A handler that wants
// to analyze a request in the background must move the Event to its own
// goroutine itself; the SDK places no ordering guarantee on that work
// beyond what's described in §5.
type Handler interface {
	// OnConnected fires once a peer has attached, strictly before the
	// first OnAnalysisRequested for that peer.
	OnConnected(peer PeerInfo)

	// OnDisconnected fires at most once per peer, after the last
	// OnAnalysisRequested for that peer. The handler may still be
	// processing requests from this peer asynchronously. Their Events keep
	// the peer's old transport open until each Event is closed, so Send
	// still writes to it and returns whatever error that write produces;
	// Send returns KindClosed only after the Event itself has been closed.
	OnDisconnected(peer PeerInfo)

	// OnAnalysisRequested hands off one parsed request. The handler is not
	// required to call Event.Send before returning.
	OnAnalysisRequested(event Event)

	// OnResponseAcknowledged reports that a peer received a previously
	// sent response.
	OnResponseAcknowledged(ack wire.Acknowledgement)

	// OnCancelRequests reports that a peer abandons the named outstanding
	// requests. The SDK does not forcibly terminate any handler work in
	// progress for them.
	OnCancelRequests(cancel wire.CancelRequests)
}

// BaseHandler implements Handler with no-op bodies for every method except
// OnAnalysisRequested, matching the behavior of the embeddable defaults in
// the original AgentEventHandler interface. Embed it and override only the
// callbacks a handler cares about.
type BaseHandler struct{}

func (BaseHandler) OnConnected(PeerInfo)                        {}
func (BaseHandler) OnDisconnected(PeerInfo)                     {}
func (BaseHandler) OnResponseAcknowledged(wire.Acknowledgement) {}
func (BaseHandler) OnCancelRequests(wire.CancelRequests)        {}
