package codec

import (
	"testing"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simulateChunkedRead feeds msg through a Reader the way a transport would:
// ChunkSize bytes at a time, reporting moreData until the last chunk.
func simulateChunkedRead(t *testing.T, msg []byte) []byte {
	t.Helper()
	r := NewReader()
	remaining := msg
	for {
		n := copy(r.Cursor(), remaining)
		remaining = remaining[n:]
		more := len(remaining) > 0
		r.Advance(n, more)
		if !more {
			break
		}
	}
	return r.Message()
}

func TestReaderReassemblesAcrossChunks(t *testing.T) {
	req := &wire.PeerToAgent{Request: &wire.Request{RequestToken: "req-1", Tags: []string{"dlp"}}}
	raw, err := wire.EncodePeerToAgent(req)
	require.NoError(t, err)

	// Force a message long enough to span multiple ChunkSize reads.
	padded := append(raw, make([]byte, ChunkSize*3)...)

	got := simulateChunkedRead(t, padded)
	assert.Equal(t, padded, got)
}

func TestReaderFragmentationIndependence(t *testing.T) {
	req := &wire.PeerToAgent{Request: &wire.Request{RequestToken: "req-1", Tags: []string{"dlp"}}}
	raw, err := wire.EncodePeerToAgent(req)
	require.NoError(t, err)

	// Whether the transport delivers one big chunk or many tiny ones, the
	// reassembled bytes must decode identically (property 5 in §8).
	oneShot := simulateChunkedRead(t, raw)
	decoded1, err := DecodePeerMessage(oneShot)
	require.NoError(t, err)

	byteAtATime := NewReader()
	for i := range raw {
		last := i == len(raw)-1
		n := copy(byteAtATime.Cursor(), raw[i:i+1])
		byteAtATime.Advance(n, !last)
	}
	decoded2, err := DecodePeerMessage(byteAtATime.Message())
	require.NoError(t, err)

	assert.Equal(t, decoded1.Request.RequestToken, decoded2.Request.RequestToken)
}

func TestDecodePeerMessageRejectsEmpty(t *testing.T) {
	_, err := DecodePeerMessage(nil)
	require.Error(t, err)
	kind, ok := api.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, api.KindMalformedMessage, kind)
}

func TestDecodePeerMessageRejectsMultiVariant(t *testing.T) {
	msg := &wire.PeerToAgent{
		Request: &wire.Request{RequestToken: "x"},
		Ack:     &wire.Acknowledgement{RequestToken: "x"},
	}
	raw, err := wire.EncodePeerToAgent(msg)
	require.NoError(t, err)

	_, err = DecodePeerMessage(raw)
	require.Error(t, err)
	kind, _ := api.KindOf(err)
	assert.Equal(t, api.KindMalformedMessage, kind)
}

func TestEncodeAgentMessageNilIsNoop(t *testing.T) {
	b, err := EncodeAgentMessage(nil)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	resp := &wire.Response{
		RequestToken: "req-1",
		Results:      []wire.Result{{Tag: "dlp", Status: wire.StatusSuccess}},
	}
	b, err := EncodeAgentMessage(resp)
	require.NoError(t, err)

	env, err := wire.DecodeAgentToPeer(b)
	require.NoError(t, err)
	assert.Equal(t, resp.RequestToken, env.Response.RequestToken)
}
