package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	a := New(KindClosed, "first message")
	b := New(KindClosed, "a completely different message")
	assert.True(t, errors.Is(a, b))

	c := New(KindPending, "first message")
	assert.False(t, errors.Is(a, c))
}

func TestErrorIsIgnoresNonStructuredErrors(t *testing.T) {
	a := New(KindClosed, "closed")
	assert.False(t, errors.Is(a, errors.New("closed")))
}

func TestFatalKinds(t *testing.T) {
	fatal := []Kind{KindInvalidChannelName, KindAgentAlreadyExists, KindStopSourceUnavailable}
	for _, k := range fatal {
		assert.True(t, New(k, "").Fatal(), "%s should be fatal", k)
	}

	recoverable := []Kind{KindPending, KindMoreData, KindMalformedMessage, KindClosed, KindMissingToken}
	for _, k := range recoverable {
		assert.False(t, New(k, "").Fatal(), "%s should not be fatal", k)
	}
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(New(KindMissingToken, "no token"))
	require.True(t, ok)
	assert.Equal(t, KindMissingToken, kind)

	_, ok = KindOf(nil)
	assert.False(t, ok, "nil must not be mistaken for KindOk")

	_, ok = KindOf(errors.New("not ours"))
	assert.False(t, ok)
}

func TestWithContextChains(t *testing.T) {
	err := New(KindMalformedMessage, "decode failed").
		WithContext("cause", "unexpected break").
		WithContext("populated", 0)

	assert.Equal(t, "unexpected break", err.Context["cause"])
	assert.Equal(t, 0, err.Context["populated"])
	assert.Contains(t, err.Error(), "decode failed")
}

func TestKindStringUnknown(t *testing.T) {
	assert.Equal(t, "unknown", Kind(999).String())
}
