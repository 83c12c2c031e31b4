// Package codec reassembles length-delimited messages from fixed-size
// chunk reads and encodes/decodes the wire envelopes carried over them. It
// owns the chunk-size constant and growth policy described in §4.1; it has
// no knowledge of the transport that supplies the bytes.
package codec

import (
	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/wire"
)

// ChunkSize is the size of each read issued while reassembling a message.
const ChunkSize = api.ChunkSize

// Reader reassembles one message at a time from a sequence of chunk-sized
// read completions. It is reused across messages via Reset; it is not
// safe for concurrent use.
type Reader struct {
	buf    []byte
	cursor int
}

// NewReader returns a Reader sized for the first chunk of a message.
func NewReader() *Reader {
	return &Reader{buf: make([]byte, ChunkSize)}
}

// Cursor returns the slice the next read should fill, starting at the
// first byte not yet written.
func (r *Reader) Cursor() []byte {
	return r.buf[r.cursor:]
}

// Advance records that n bytes were just read into Cursor(). If moreData
// is true, the buffer grows by one more ChunkSize so the next read has
// somewhere to land; otherwise the message is complete.
func (r *Reader) Advance(n int, moreData bool) {
	r.cursor += n
	if moreData {
		r.buf = append(r.buf, make([]byte, ChunkSize)...)
	}
}

// Message returns the bytes assembled so far.
func (r *Reader) Message() []byte {
	return r.buf[:r.cursor]
}

// Reset prepares the Reader for the next message, reusing its backing
// array when it's already at least one chunk long.
func (r *Reader) Reset() {
	if cap(r.buf) >= ChunkSize {
		r.buf = r.buf[:ChunkSize]
	} else {
		r.buf = make([]byte, ChunkSize)
	}
	r.cursor = 0
}

// DecodePeerMessage decodes one reassembled message into its PeerToAgent
// envelope, enforcing that exactly one variant is populated. An empty
// message is invalid on read per §4.1.
func DecodePeerMessage(b []byte) (*wire.PeerToAgent, error) {
	if len(b) == 0 {
		return nil, api.New(api.KindMalformedMessage, "empty message")
	}
	msg, err := wire.DecodePeerToAgent(b)
	if err != nil {
		return nil, api.New(api.KindMalformedMessage, "decode failed").WithContext("cause", err.Error())
	}
	switch msg.PopulatedCount() {
	case 1:
		return msg, nil
	default:
		return nil, api.New(api.KindMalformedMessage, "message must populate exactly one variant").
			WithContext("populated", msg.PopulatedCount())
	}
}

// EncodeAgentMessage serializes a response envelope for transmission. A
// nil Response encodes to nil, which callers must treat as a no-op write
// per §4.1 ("empty messages are ... suppressed on writes").
func EncodeAgentMessage(resp *wire.Response) ([]byte, error) {
	if resp == nil {
		return nil, nil
	}
	return wire.EncodeAgentToPeer(&wire.AgentToPeer{Response: resp})
}
