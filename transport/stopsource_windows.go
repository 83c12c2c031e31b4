//go:build windows

package transport

import "golang.org/x/sys/windows"

// windowsStopSource is a manual-reset event signalled from Stop(). Its
// underlying type is windows.Handle so it can be fed straight into
// WaitForMultipleObjects alongside per-connection readiness handles.
type windowsStopSource windows.Handle

func newStopSource() (StopSource, error) {
	ev, err := windows.CreateEvent(nil, 1 /*manualReset*/, 0, nil)
	if err != nil {
		return nil, err
	}
	return windowsStopSource(ev), nil
}

func (s windowsStopSource) Signal() error {
	return windows.SetEvent(windows.Handle(s))
}

func (s windowsStopSource) Close() error {
	return windows.CloseHandle(windows.Handle(s))
}
