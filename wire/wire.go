// Package wire defines the tagged-union messages exchanged between a peer
// (browser) process and the agent, and their CBOR encoding.
//
// Peer-to-agent messages are carried in a PeerToAgent envelope with exactly
// one of Request, Ack, or Cancel populated. Agent-to-peer messages are
// carried in an AgentToPeer envelope with Response populated. The envelopes
// themselves are the unit the framing codec hands to and receives from the
// transport; nothing else in this package concerns itself with I/O.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Status is the terminal disposition of a content analysis result or
// acknowledgement.
type Status int32

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusFailure
)

// Action is the verdict carried by a triggered rule.
type Action int32

const (
	ActionUnspecified Action = iota
	ActionAllow
	ActionReportOnly
	ActionWarn
	ActionBlock
)

// TriggeredRule names the rule that produced a non-default verdict.
type TriggeredRule struct {
	Action   Action `cbor:"1,keyasint"`
	RuleName string `cbor:"2,keyasint,omitempty"`
}

// Result is one tag's analysis outcome.
type Result struct {
	Tag            string          `cbor:"1,keyasint"`
	Status         Status          `cbor:"2,keyasint"`
	TriggeredRules []TriggeredRule `cbor:"3,keyasint,omitempty"`
}

// Request is a content analysis request from a peer.
type Request struct {
	RequestToken    string   `cbor:"1,keyasint"`
	Tags            []string `cbor:"2,keyasint,omitempty"`
	// PrintDataHandle, when non-nil, is an opaque shared-memory handle for
	// printable content. The core forwards it to the handler verbatim; it
	// never maps or unmaps it.
	PrintDataHandle *uint64 `cbor:"3,keyasint,omitempty"`
	Payload         []byte  `cbor:"4,keyasint,omitempty"`
}

// Response is the agent's verdict, sent back to the peer.
type Response struct {
	RequestToken string   `cbor:"1,keyasint"`
	Results      []Result `cbor:"2,keyasint"`
}

// Acknowledgement confirms the peer received and acted on a Response.
type Acknowledgement struct {
	RequestToken string `cbor:"1,keyasint"`
	Status       Status `cbor:"2,keyasint"`
}

// CancelRequests tells the agent the peer abandons the named outstanding
// requests.
type CancelRequests struct {
	RequestTokens []string `cbor:"1,keyasint"`
}

// PeerToAgent is the outer envelope for everything a peer sends the agent.
// Exactly one field must be non-nil.
type PeerToAgent struct {
	Request *Request         `cbor:"1,keyasint,omitempty"`
	Ack     *Acknowledgement `cbor:"2,keyasint,omitempty"`
	Cancel  *CancelRequests  `cbor:"3,keyasint,omitempty"`
}

// AgentToPeer is the outer envelope for everything the agent sends a peer.
type AgentToPeer struct {
	Response *Response `cbor:"1,keyasint,omitempty"`
}

// PopulatedCount returns how many of the envelope's variant fields are set.
// Exactly one must be set for a message to be valid.
func (m *PeerToAgent) PopulatedCount() int {
	n := 0
	if m.Request != nil {
		n++
	}
	if m.Ack != nil {
		n++
	}
	if m.Cancel != nil {
		n++
	}
	return n
}

var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor encode mode: %v", err))
	}
	return mode
}()

// EncodePeerToAgent serializes a PeerToAgent envelope in canonical CBOR.
func EncodePeerToAgent(m *PeerToAgent) ([]byte, error) {
	return encMode.Marshal(m)
}

// DecodePeerToAgent parses bytes produced by EncodePeerToAgent.
func DecodePeerToAgent(b []byte) (*PeerToAgent, error) {
	var m PeerToAgent
	if err := cbor.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeAgentToPeer serializes an AgentToPeer envelope in canonical CBOR.
func EncodeAgentToPeer(m *AgentToPeer) ([]byte, error) {
	return encMode.Marshal(m)
}

// DecodeAgentToPeer parses bytes produced by EncodeAgentToPeer. It exists
// mainly for tests that assert on the wire image observed by a peer.
func DecodeAgentToPeer(b []byte) (*AgentToPeer, error) {
	var m AgentToPeer
	if err := cbor.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
