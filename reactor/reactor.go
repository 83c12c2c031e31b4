// Package reactor implements the single-threaded event loop of §4.5: it
// owns the Connection pool and a stop signal, waits on their readiness
// sources, and maintains the listener-count invariant as peers come and
// go.
package reactor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/connection"
	"github.com/quillhaven/agentcore/transport"
)

// Reactor drains one endpoint's Connection pool until Stop is signalled.
// It is not safe to call HandleEvents concurrently with itself, but Stop
// may be called from any goroutine at any time.
type Reactor struct {
	name         string
	minListeners int
	logger       api.Logger
	handler      api.Handler
	newTransport connection.TransportFactory

	waitSet transport.WaitSet
	stop    transport.StopSource

	conns   []*connection.Connection
	metrics *metrics
}

// New pre-populates the Connection pool to minListeners, with the first
// Connection's CreateListening carrying first=true so duplicate-agent
// detection (§4.5) happens during construction rather than inside the
// loop. name must already be platform-resolved (see transport.ResolveName).
func New(
	name string,
	minListeners int,
	logger api.Logger,
	handler api.Handler,
	newTransport connection.TransportFactory,
	waitSet transport.WaitSet,
	stop transport.StopSource,
	metricsRegisterer prometheus.Registerer,
) (*Reactor, error) {
	r := &Reactor{
		name:         name,
		minListeners: minListeners,
		logger:       logger,
		handler:      handler,
		newTransport: newTransport,
		waitSet:      waitSet,
		stop:         stop,
		metrics:      newMetrics(metricsRegisterer),
	}

	for i := 0; i < minListeners; i++ {
		conn, err := connection.New(name, i == 0, logger, newTransport)
		if err != nil {
			r.closeConns()
			return nil, err
		}
		r.conns = append(r.conns, conn)
	}
	r.metrics.poolSize.Set(float64(len(r.conns)))
	return r, nil
}

// HandleEvents is the single blocking call of §6: it drives the loop body
// of §4.5 until Stop is signalled or a NotInitialized wait set is detected.
func (r *Reactor) HandleEvents() error {
	for {
		sources := make([]transport.WaitSource, len(r.conns))
		for i, c := range r.conns {
			sources[i] = c.ReadinessSource()
		}
		if len(sources)+1 < r.minListeners+1 {
			return api.New(api.KindNotInitialized, "wait set has fewer than the minimum required slots").
				WithContext("slots", len(sources)+1)
		}

		if err := r.waitSet.Arm(sources, r.stop); err != nil {
			return err
		}
		idx, err := r.waitSet.Wait()
		if err != nil {
			return err
		}
		if idx == len(r.conns) {
			return nil
		}

		r.dispatchOne(idx)
	}
}

func (r *Reactor) dispatchOne(idx int) {
	conn := r.conns[idx]
	wasConnected := conn.Connected()
	peer := conn.Peer()
	poolSize := len(r.conns)

	if err := conn.HandleReadiness(r.handler); err != nil {
		r.logger.Printf("agentcore: connection %s: %v", conn.ID(), err)
		r.metrics.dispatchTotal.WithLabelValues("error").Inc()
		if wasConnected {
			r.handler.OnDisconnected(peer)
		}
		if wasConnected && poolSize > r.minListeners {
			r.removeConn(idx)
			return
		}
		r.metrics.resetsTotal.Inc()
		if rerr := conn.Reset(); rerr != nil {
			r.logger.Printf("agentcore: connection %s: reset failed: %v", conn.ID(), rerr)
		}
		return
	}
	r.metrics.dispatchTotal.WithLabelValues("ok").Inc()

	if !wasConnected && conn.Connected() {
		r.metrics.acceptsTotal.Inc()
		r.growPool()
	}
}

// growPool maintains the invariant tested by §8 property 1: once a
// listener is promoted to connected, a fresh listener replaces it.
func (r *Reactor) growPool() {
	conn, err := connection.New(r.name, false, r.logger, r.newTransport)
	if err != nil {
		r.logger.Printf("agentcore: failed to grow listener pool: %v", err)
		return
	}
	r.conns = append(r.conns, conn)
	r.metrics.poolSize.Set(float64(len(r.conns)))
}

func (r *Reactor) removeConn(idx int) {
	r.metrics.removalsTotal.Inc()
	r.conns[idx].Close()
	r.conns = append(r.conns[:idx], r.conns[idx+1:]...)
	r.metrics.poolSize.Set(float64(len(r.conns)))
}

func (r *Reactor) closeConns() {
	for _, c := range r.conns {
		c.Close()
	}
	r.conns = nil
}

// Stop signals the reactor's stop source; safe from any goroutine.
func (r *Reactor) Stop() error {
	return r.stop.Signal()
}

// Close drains and closes every Connection and releases the wait set and
// stop source. Outstanding Events may still complete their Send against
// transports this leaves open via refcounting (see connection.handle.go);
// their Send will observe KindClosed only once the last reference drops.
func (r *Reactor) Close() error {
	r.closeConns()
	if err := r.waitSet.Close(); err != nil {
		return err
	}
	return r.stop.Close()
}

// PoolSize reports the current number of Connections, for tests asserting
// the listener-count invariant.
func (r *Reactor) PoolSize() int {
	return len(r.conns)
}
