package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/internal/faketransport"
	"github.com/quillhaven/agentcore/transport"
	"github.com/quillhaven/agentcore/wire"
)

type countingHandler struct {
	api.BaseHandler
	connects    int
	disconnects int
	requests    int
}

func (h *countingHandler) OnConnected(api.PeerInfo)      { h.connects++ }
func (h *countingHandler) OnDisconnected(api.PeerInfo)   { h.disconnects++ }
func (h *countingHandler) OnAnalysisRequested(api.Event) { h.requests++ }

func newTestReactor(t *testing.T, minListeners int, h api.Handler) (*Reactor, *faketransport.Factory, *faketransport.StopSource) {
	t.Helper()
	factory := faketransport.NewFactory()
	waitSet := faketransport.NewWaitSet()
	stop := faketransport.NewStopSource()
	r, err := New("test", minListeners, api.DefaultLogger(), h, factory.New, waitSet, stop, nil)
	require.NoError(t, err)
	return r, factory, stop
}

// Property 1: pool size never drops below minListeners, and construction
// pre-populates exactly that many.
func TestReactorConstructsMinListeners(t *testing.T) {
	r, _, _ := newTestReactor(t, 2, &countingHandler{})
	assert.Equal(t, 2, r.PoolSize())
}

// Property: the listener promoted by a successful accept is replaced by a
// fresh one, keeping the pool at or above minListeners.
func TestReactorGrowsPoolAfterAccept(t *testing.T) {
	h := &countingHandler{}
	r, factory, stop := newTestReactor(t, 2, h)

	factory.Slot(0).Attach(transport.PeerIdentity{ProcessID: 1}, nil)
	stop.Signal()

	require.NoError(t, r.HandleEvents())
	assert.Equal(t, 1, h.connects)
	assert.Equal(t, 3, r.PoolSize(), "a promoted listener must be replaced, growing the pool")
}

// Property 2: connect/disconnect pairing. A read error on a connected,
// above-minimum slot fires OnDisconnected exactly once and removes the slot
// rather than resetting it.
func TestReactorRemovesAboveMinimumOnError(t *testing.T) {
	h := &countingHandler{}
	r, factory, stop := newTestReactor(t, 1, h)

	factory.Slot(0).Attach(transport.PeerIdentity{ProcessID: 1}, nil)
	stop.Signal()
	require.NoError(t, r.HandleEvents())
	require.Equal(t, 2, r.PoolSize())

	stop2 := faketransport.NewStopSource()
	r.stop = stop2

	factory.Slot(0).Enqueue([]byte{0xff, 0xff, 0xff, 0xff})
	stop2.Signal()
	require.NoError(t, r.HandleEvents())

	assert.Equal(t, 1, h.disconnects)
	assert.Equal(t, 1, r.PoolSize(), "above-minimum connected slot with a read error must be removed, not reset")
}

// Property: a read error on a connected slot at exactly minListeners resets
// instead of removing, preserving the invariant.
func TestReactorResetsAtMinimumOnError(t *testing.T) {
	h := &countingHandler{}
	r, factory, stop := newTestReactor(t, 1, h)

	factory.Slot(0).Attach(transport.PeerIdentity{ProcessID: 1}, nil)
	stop.Signal()
	require.NoError(t, r.HandleEvents())
	require.Equal(t, 2, r.PoolSize())

	// Raise minListeners to match the current pool size so the connected
	// slot counts as at-minimum rather than above it.
	r.minListeners = 2

	stop2 := faketransport.NewStopSource()
	r.stop = stop2
	factory.Slot(0).Enqueue([]byte{0xff, 0xff, 0xff, 0xff})
	stop2.Signal()
	require.NoError(t, r.HandleEvents())

	assert.Equal(t, 1, h.disconnects)
	assert.Equal(t, 2, r.PoolSize(), "at-minimum connected slot with a read error must reset, not shrink the pool")
	assert.Equal(t, 1, factory.Slot(0).DisconnectCount())
}

func TestReactorDispatchesRequestThroughPool(t *testing.T) {
	h := &countingHandler{}
	r, factory, stop := newTestReactor(t, 1, h)

	factory.Slot(0).Attach(transport.PeerIdentity{ProcessID: 1}, nil)
	stop.Signal()
	require.NoError(t, r.HandleEvents())

	raw, err := wire.EncodePeerToAgent(&wire.PeerToAgent{Request: &wire.Request{RequestToken: "tok"}})
	require.NoError(t, err)

	stop2 := faketransport.NewStopSource()
	r.stop = stop2
	factory.Slot(0).Enqueue(raw)
	stop2.Signal()
	require.NoError(t, r.HandleEvents())

	assert.Equal(t, 1, h.requests)
}

// Property 7: Stop is observable from HandleEvents even with nothing else
// happening.
func TestReactorStopReturnsHandleEvents(t *testing.T) {
	r, _, stop := newTestReactor(t, 2, &countingHandler{})
	stop.Signal()
	assert.NoError(t, r.HandleEvents())
}

func TestReactorNotInitializedWhenPoolShrinksBelowMinimum(t *testing.T) {
	r, _, _ := newTestReactor(t, 2, &countingHandler{})
	r.conns = r.conns[:1]

	err := r.HandleEvents()
	kind, ok := api.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, api.KindNotInitialized, kind)
}

func TestReactorCloseReleasesWaitSetAndStop(t *testing.T) {
	r, _, _ := newTestReactor(t, 1, &countingHandler{})
	require.NoError(t, r.Close())
}
