//go:build windows

package transport

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/quillhaven/agentcore/api"
)

// windowsTransport is a Connection's capability surface backed by a
// PIPE_TYPE_MESSAGE named pipe and one overlapped I/O slot, grounded in
// agent_win.cc's Connection.
type windowsTransport struct {
	h    windows.Handle
	ov   windows.Overlapped
	name string
	first bool
}

func newTransport() (Transport, error) {
	return &windowsTransport{h: windows.InvalidHandle}, nil
}

func (t *windowsTransport) CreateListening(name string, first bool) error {
	h, err := createNamedPipe(name, first, api.ChunkSize)
	if err != nil {
		if first && isAccessDenied(err) {
			return api.New(api.KindAgentAlreadyExists, "endpoint already owned by another process").
				WithContext("name", name)
		}
		return api.New(api.KindInvalidChannelName, "create named pipe failed").
			WithContext("name", name).WithContext("cause", err.Error())
	}

	ev, err := windows.CreateEvent(nil, 1 /*manualReset*/, 0 /*initialState*/, nil)
	if err != nil {
		windows.CloseHandle(h)
		return api.New(api.KindStopSourceUnavailable, "create overlapped event failed").
			WithContext("cause", err.Error())
	}

	t.h = h
	t.ov = windows.Overlapped{HEvent: ev}
	t.name = name
	t.first = first
	return nil
}

func (t *windowsTransport) AcceptAsync() error {
	if err := windows.ResetEvent(t.ov.HEvent); err != nil {
		return err
	}
	err := connectNamedPipe(t.h, &t.ov)
	if err == nil {
		// Synchronous success: make sure the event ends up signalled so
		// the wait set observes the completion.
		return windows.SetEvent(t.ov.HEvent)
	}
	switch errno(err) {
	case windows.ERROR_IO_PENDING:
		return nil
	case windows.ERROR_PIPE_CONNECTED:
		return windows.SetEvent(t.ov.HEvent)
	default:
		return err
	}
}

func (t *windowsTransport) ReadAsync(dst []byte) error {
	var done uint32
	err := windows.ReadFile(t.h, dst, &done, &t.ov)
	if err == nil {
		return nil
	}
	if errno(err) == windows.ERROR_IO_PENDING {
		return nil
	}
	return err
}

func (t *windowsTransport) CompleteReadiness() (n int, endOfMessage bool, err error) {
	var count uint32
	gerr := windows.GetOverlappedResult(t.h, &t.ov, &count, false)
	if gerr == nil {
		return int(count), true, nil
	}
	if errno(gerr) == windows.ERROR_MORE_DATA {
		return int(count), false, nil
	}
	return int(count), true, gerr
}

func (t *windowsTransport) WriteAll(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	ev, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(ev)
	ov := windows.Overlapped{HEvent: ev}

	for cursor := b; len(cursor) > 0; {
		var written uint32
		werr := windows.WriteFile(t.h, cursor, &written, &ov)
		if werr != nil {
			if errno(werr) != windows.ERROR_IO_PENDING {
				return werr
			}
			if oerr := windows.GetOverlappedResult(t.h, &ov, &written, true); oerr != nil {
				return oerr
			}
		}
		cursor = cursor[written:]
	}
	return nil
}

func (t *windowsTransport) PeerIdentity() (PeerIdentity, error) {
	pid, err := getNamedPipeClientProcessID(t.h)
	if err != nil {
		return PeerIdentity{}, nil
	}
	path, perr := queryProcessImagePath(pid)
	if perr != nil {
		return PeerIdentity{ProcessID: pid}, nil
	}
	return PeerIdentity{ProcessID: pid, BinaryPath: path}, nil
}

func (t *windowsTransport) CancelOutstanding() error {
	if t.h == windows.InvalidHandle {
		return nil
	}
	return windows.CancelIoEx(t.h, nil)
}

func (t *windowsTransport) Disconnect() error {
	return disconnectNamedPipe(t.h)
}

func (t *windowsTransport) Close() error {
	if t.h != windows.InvalidHandle && t.h != 0 {
		windows.CloseHandle(t.h)
		t.h = windows.InvalidHandle
	}
	if t.ov.HEvent != 0 {
		windows.CloseHandle(t.ov.HEvent)
		t.ov.HEvent = 0
	}
	return nil
}

func (t *windowsTransport) ReadinessSource() WaitSource {
	return t.ov.HEvent
}

func errno(err error) syscall.Errno {
	e, _ := err.(syscall.Errno)
	return e
}

func isAccessDenied(err error) bool {
	return errno(err) == windows.ERROR_ACCESS_DENIED
}

func queryProcessImagePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}
