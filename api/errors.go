// Package api defines the public surface shared by every other package in
// this module: configuration, peer identity, the handler contract, the
// per-request event, and the structured error kinds in §7.
package api

import "fmt"

// Kind identifies one of the error conditions this module can produce.
// Handlers should branch on Kind (via errors.Is against the sentinel
// constructors below, or via As against *Error) rather than on message
// text.
type Kind int

const (
	KindOk Kind = iota
	KindPending
	KindMoreData
	KindMalformedMessage
	KindAlreadySent
	KindClosed
	KindMissingToken
	KindPeerPidUnavailable
	KindPeerPathUnavailable
	KindNotInitialized
	KindInvalidChannelName
	KindAgentAlreadyExists
	KindStopSourceUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindOk:
		return "ok"
	case KindPending:
		return "pending"
	case KindMoreData:
		return "more_data"
	case KindMalformedMessage:
		return "malformed_message"
	case KindAlreadySent:
		return "already_sent"
	case KindClosed:
		return "closed"
	case KindMissingToken:
		return "missing_token"
	case KindPeerPidUnavailable:
		return "peer_pid_unavailable"
	case KindPeerPathUnavailable:
		return "peer_path_unavailable"
	case KindNotInitialized:
		return "not_initialized"
	case KindInvalidChannelName:
		return "invalid_channel_name"
	case KindAgentAlreadyExists:
		return "agent_already_exists"
	case KindStopSourceUnavailable:
		return "stop_source_unavailable"
	default:
		return "unknown"
	}
}

// fatalKinds abort Service construction or make HandleEvents return before
// entering the loop, per §7's propagation rule.
var fatalKinds = map[Kind]bool{
	KindInvalidChannelName:    true,
	KindAgentAlreadyExists:    true,
	KindStopSourceUnavailable: true,
}

// Error is the structured error type every package in this module returns
// for recoverable and fatal conditions alike.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (context: %+v)", e.Kind, e.Message, e.Context)
}

// WithContext attaches a diagnostic key/value and returns the receiver for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Is lets errors.Is match against a bare Kind via a sentinel built with New,
// e.g. errors.Is(err, api.New(api.KindClosed, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Fatal reports whether this error's kind aborts construction or the event
// loop outright rather than being handled per-connection.
func (e *Error) Fatal() bool {
	return fatalKinds[e.Kind]
}

// KindOf extracts the Kind from err if it is an *Error. ok is false if err
// is nil or not one of this module's structured errors.
func KindOf(err error) (kind Kind, ok bool) {
	if err == nil {
		return KindOk, false
	}
	ae, ok := err.(*Error)
	if !ok {
		return KindOk, false
	}
	return ae.Kind, true
}
