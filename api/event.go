package api

import "github.com/quillhaven/agentcore/wire"

// Event is the per-request object handed to Handler.OnAnalysisRequested. It
// carries the immutable request, a mutable prefilled response, and a
// single-shot Send. Its lifetime is decoupled from its Connection's next
// read: a Connection may reset to LISTENING, or even be removed from the
// pool, while an Event constructed from it is still outstanding.
//
// Event is not thread-safe. A handler that passes an Event to another
// goroutine is responsible for serializing its own access to it.
type Event interface {
	// Peer returns the identity of the browser process that sent this
	// request.
	Peer() PeerInfo

	// Request returns the parsed, read-only request.
	Request() wire.Request

	// Response returns the mutable response that Send will transmit. It is
	// prefilled during construction with one Success result tagged with
	// the request's first tag (or empty) and no triggered rules.
	Response() *wire.Response

	// Send serializes the current Response and transmits it to the peer.
	// It succeeds at most once: a second call returns an error of kind
	// KindAlreadySent. Calling it after Close returns KindClosed.
	Send() error

	// Close voluntarily releases this Event's reference to its
	// Connection's transport. Afterward Send fails with KindClosed; Peer,
	// Request and Response still return their values, and a further Close
	// returns nil.
	Close() error
}

// SetVerdict sets the action of the first triggered rule of the first
// result in resp, creating both if necessary. It is the free-function
// equivalent of Event.Response().Results[0].TriggeredRules[0].Action = action.
func SetVerdict(resp *wire.Response, action wire.Action) {
	if len(resp.Results) == 0 {
		resp.Results = append(resp.Results, wire.Result{Status: wire.StatusSuccess})
	}
	result := &resp.Results[0]
	if len(result.TriggeredRules) == 0 {
		result.TriggeredRules = append(result.TriggeredRules, wire.TriggeredRule{})
	}
	result.TriggeredRules[0].Action = action
}

// SetVerdictToBlock is SetVerdict(resp, wire.ActionBlock).
func SetVerdictToBlock(resp *wire.Response) {
	SetVerdict(resp, wire.ActionBlock)
}

// InitResponse prefills resp the way Event construction does: one Success
// result carrying req's first tag (or empty) and no triggered rules. It is
// exported so callers building a Response outside of an Event (e.g. tests)
// get the same defaults the SDK guarantees in §8's default-verdict
// property.
func InitResponse(resp *wire.Response, req wire.Request) {
	tag := ""
	if len(req.Tags) > 0 {
		tag = req.Tags[0]
	}
	resp.RequestToken = req.RequestToken
	resp.Results = []wire.Result{{Tag: tag, Status: wire.StatusSuccess}}
}
