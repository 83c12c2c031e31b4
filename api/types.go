package api

import "github.com/prometheus/client_golang/prometheus"

// MinListeners is the minimum number of LISTENING connections the reactor
// keeps available for new peers at all times while running.
const MinListeners = 2

// ChunkSize is the size of each read issued while reassembling a message,
// and the increment a buffer grows by when a read reports more data is
// pending.
const ChunkSize = 4096

// MinWaitSlots is the minimum size of a reactor wait set: one slot per
// required listener plus one for the stop source.
const MinWaitSlots = MinListeners + 1

// Config holds the immutable parameters used to construct a Service.
type Config struct {
	// Name is used to derive the platform endpoint address. Both the agent
	// and the peer must agree on it. Must be non-empty.
	Name string

	// UserSpecific, when true, scopes the endpoint to the calling OS user
	// instead of being shared system-wide.
	UserSpecific bool

	// MinListeners overrides the default minimum listener count (2) if
	// positive. Exists for tests that want to exercise pool growth with a
	// smaller wait set; production callers should leave it at zero.
	MinListeners int

	// Logger receives diagnostic messages about recoverable errors
	// (decode failures, peer-info lookups, connection resets). Defaults to
	// a logger writing to os.Stderr when nil.
	Logger Logger

	// MetricsRegisterer receives the Service's pool and dispatch
	// collectors. Defaults to a private registry scoped to this Service
	// when nil; pass a shared Registerer (e.g. prometheus.DefaultRegisterer)
	// to aggregate several Services' metrics behind one /metrics endpoint.
	MetricsRegisterer prometheus.Registerer
}

// EffectiveMinListeners returns the configured MinListeners or the module
// default if unset.
func (c Config) EffectiveMinListeners() int {
	if c.MinListeners > 0 {
		return c.MinListeners
	}
	return MinListeners
}

// PeerInfo describes the process on the other end of a Connection. It is
// populated exactly once, right after accept, and never mutated after
// that.
type PeerInfo struct {
	ProcessID  uint32
	BinaryPath string
}
