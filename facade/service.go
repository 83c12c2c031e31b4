// Package facade exposes the single public entry point of this module:
// construct a Service with a configuration and a handler, block in
// HandleEvents, and Stop it from any thread.
package facade

import (
	"github.com/quillhaven/agentcore/api"
	"github.com/quillhaven/agentcore/connection"
	"github.com/quillhaven/agentcore/reactor"
	"github.com/quillhaven/agentcore/transport"
)

// Service is the facade described in §2 and §6. It owns the Reactor for
// its entire lifetime; the handler is owned by the Service for its entire
// lifetime too.
type Service struct {
	cfg     api.Config
	handler api.Handler
	logger  api.Logger

	reactor *reactor.Reactor
}

// New resolves cfg.Name to a platform endpoint address, pre-populates the
// listener pool, and returns a Service ready for HandleEvents. Per §7, a
// fatal error (InvalidChannelName, AgentAlreadyExists,
// StopSourceUnavailable) aborts construction here rather than surfacing
// from HandleEvents.
func New(cfg api.Config, handler api.Handler) (*Service, error) {
	name, err := transport.ResolveName(cfg.Name, cfg.UserSpecific)
	if err != nil {
		return nil, err
	}

	stop, err := transport.NewStopSource()
	if err != nil {
		return nil, api.New(api.KindStopSourceUnavailable, "cannot allocate stop signal").
			WithContext("cause", err.Error())
	}

	waitSet, err := transport.NewWaitSet()
	if err != nil {
		stop.Close()
		return nil, err
	}

	return newWithDeps(cfg, handler, name, transport.New, waitSet, stop)
}

// newWithDeps wires a Service's Reactor from already-resolved dependencies.
// New uses it with the real platform transport; tests use it with
// internal/faketransport to exercise Service without OS resources.
func newWithDeps(
	cfg api.Config,
	handler api.Handler,
	name string,
	newTransport connection.TransportFactory,
	waitSet transport.WaitSet,
	stop transport.StopSource,
) (*Service, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = api.DefaultLogger()
	}

	r, err := reactor.New(name, cfg.EffectiveMinListeners(), logger, handler, newTransport, waitSet, stop, cfg.MetricsRegisterer)
	if err != nil {
		waitSet.Close()
		stop.Close()
		return nil, err
	}

	return &Service{cfg: cfg, handler: handler, logger: logger, reactor: r}, nil
}

// HandleEvents is the single blocking call of §6. It returns nil once Stop
// has been observed, or a recoverable-turned-fatal error such as
// NotInitialized.
func (s *Service) HandleEvents() error {
	defer s.reactor.Close()
	return s.reactor.HandleEvents()
}

// Stop signals HandleEvents to return. It is safe to call from any
// goroutine, any number of times, until HandleEvents has returned.
// HandleEvents closes the stop source on its way out, and Stop does not
// check for that.
func (s *Service) Stop() error {
	return s.reactor.Stop()
}

// PoolSize exposes the reactor's current listener-pool size, used by
// tests asserting the listener-count invariant from the outside.
func (s *Service) PoolSize() int {
	return s.reactor.PoolSize()
}
