//go:build windows

package transport

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/quillhaven/agentcore/api"
)

// WaitForMultipleObjects is not wrapped by golang.org/x/sys/windows, so it
// gets the same lazy-DLL treatment as the named-pipe entry points in
// pipe_windows.go.
var procWaitForMultipleObjects = modkernel32.NewProc("WaitForMultipleObjects")

const (
	waitObject0    = 0
	waitFailed     = 0xFFFFFFFF
	infiniteWait   = 0xFFFFFFFF
	maxWaitObjects = 64
)

type windowsWaitSet struct {
	handles []windows.Handle
}

func newWaitSet() (WaitSet, error) {
	return &windowsWaitSet{}, nil
}

func (w *windowsWaitSet) Arm(sources []WaitSource, stop StopSource) error {
	if len(sources)+1 > maxWaitObjects {
		return api.New(api.KindStopSourceUnavailable, "too many wait sources for WaitForMultipleObjects").
			WithContext("count", len(sources)+1)
	}

	handles := make([]windows.Handle, 0, len(sources)+1)
	for _, s := range sources {
		h, ok := s.(windows.Handle)
		if !ok {
			return api.New(api.KindStopSourceUnavailable, "wait source is not a windows handle")
		}
		handles = append(handles, h)
	}

	sh, ok := stop.(windowsStopSource)
	if !ok {
		return api.New(api.KindStopSourceUnavailable, "stop source is not a windows event")
	}
	handles = append(handles, windows.Handle(sh))

	w.handles = handles
	return nil
}

func (w *windowsWaitSet) Wait() (int, error) {
	if len(w.handles) == 0 {
		return 0, api.New(api.KindStopSourceUnavailable, "wait set not armed")
	}

	r1, _, e1 := procWaitForMultipleObjects.Call(
		uintptr(len(w.handles)),
		uintptr(unsafe.Pointer(&w.handles[0])),
		0,
		uintptr(infiniteWait),
	)
	if r1 == waitFailed {
		return 0, errnoOrFail(e1)
	}

	idx := int(r1 - waitObject0)
	if idx < 0 || idx >= len(w.handles) {
		return 0, api.New(api.KindStopSourceUnavailable, "WaitForMultipleObjects returned an out-of-range index").
			WithContext("result", idx)
	}
	return idx, nil
}

func (w *windowsWaitSet) Close() error {
	w.handles = nil
	return nil
}
