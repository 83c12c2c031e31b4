package faketransport

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/quillhaven/agentcore/transport"
)

// WaitSet multiplexes fake Transports' readiness channels with
// reflect.Select, the standard Go idiom for waiting on a dynamic number of
// channels, mirroring the role WaitForMultipleObjects/epoll play on the
// real platforms.
type WaitSet struct {
	sources []transport.WaitSource
	stop    transport.StopSource
}

func NewWaitSet() *WaitSet {
	return &WaitSet{}
}

func (w *WaitSet) Arm(sources []transport.WaitSource, stop transport.StopSource) error {
	w.sources = sources
	w.stop = stop
	return nil
}

func (w *WaitSet) Wait() (int, error) {
	chans := make([]reflect.Value, len(w.sources)+1)
	for i, s := range w.sources {
		ch, ok := s.(chan struct{})
		if !ok {
			return 0, fmt.Errorf("faketransport: wait source is not a chan struct{}")
		}
		chans[i] = reflect.ValueOf(ch)
	}
	ss, ok := w.stop.(*StopSource)
	if !ok {
		return 0, fmt.Errorf("faketransport: stop source has the wrong type")
	}
	chans[len(w.sources)] = reflect.ValueOf(ss.ch)

	// Sweep in index order first, without blocking, so that a source and
	// the stop signal becoming ready in the same instant resolve the same
	// way WaitForMultipleObjects documents: the smallest index wins.
	for {
		for i, ch := range chans {
			chosen, _, _ := reflect.Select([]reflect.SelectCase{
				{Dir: reflect.SelectRecv, Chan: ch},
				{Dir: reflect.SelectDefault},
			})
			if chosen == 0 {
				return i, nil
			}
		}
		cases := make([]reflect.SelectCase, len(chans))
		for i, ch := range chans {
			cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: ch}
		}
		chosen, _, _ := reflect.Select(cases)
		return chosen, nil
	}
}

func (w *WaitSet) Close() error {
	return nil
}

// StopSource is a channel closed exactly once by Signal, so every
// subsequent Wait observes it as permanently ready — the same idempotent
// manual-reset semantics as the Windows/POSIX stop sources.
type StopSource struct {
	ch   chan struct{}
	once sync.Once
}

func NewStopSource() *StopSource {
	return &StopSource{ch: make(chan struct{})}
}

func (s *StopSource) Signal() error {
	s.once.Do(func() { close(s.ch) })
	return nil
}

func (s *StopSource) Close() error {
	return nil
}
