//go:build !windows

package transport

import (
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/quillhaven/agentcore/api"
)

// listenFdRegistry lets every pooled Transport for one endpoint name share
// the single listening socket a POSIX server needs: unlike a named pipe,
// where each Connection slot owns its own pipe instance, a Unix domain
// socket has exactly one bound/listening fd that every accepting slot calls
// accept() against independently.
var listenFdRegistry sync.Map // name -> int fd

type posixArm int

const (
	armNone posixArm = iota
	armAccept
	armRead
)

// posixTransport adapts the readiness-based epoll model to the
// completion-based Transport interface: AcceptAsync/ReadAsync only record
// intent, and CompleteReadiness performs the actual accept(2)/recv(2) once
// the wait set has observed the fd as readable. This keeps Transport's
// outward contract identical to the Windows overlapped implementation
// while driving it from a readiness-based epoll reactor underneath.
type posixTransport struct {
	listenFd int
	connFd   int
	name     string
	first    bool
	armed    posixArm
	readBuf  []byte
}

func newTransport() (Transport, error) {
	return &posixTransport{listenFd: -1, connFd: -1}, nil
}

func (t *posixTransport) CreateListening(name string, first bool) error {
	if first {
		fd, err := bindListen(name)
		if err != nil {
			if err == unix.EADDRINUSE {
				return api.New(api.KindAgentAlreadyExists, "endpoint already bound by another process").
					WithContext("name", name)
			}
			return api.New(api.KindInvalidChannelName, "bind/listen failed").
				WithContext("name", name).WithContext("cause", err.Error())
		}
		listenFdRegistry.Store(name, fd)
		t.listenFd = fd
	} else {
		v, ok := listenFdRegistry.Load(name)
		if !ok {
			return api.New(api.KindInvalidChannelName, "listening socket not yet created for endpoint").
				WithContext("name", name)
		}
		t.listenFd = v.(int)
	}
	t.name = name
	t.first = first
	return nil
}

func bindListen(name string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	addr := &unix.SockaddrUnix{Name: name}
	if err := unix.Bind(fd, addr); err != nil {
		if err == unix.EADDRINUSE && isStaleSocket(name) {
			_ = unix.Unlink(name)
			if err2 := unix.Bind(fd, addr); err2 != nil {
				unix.Close(fd)
				return -1, err2
			}
		} else {
			unix.Close(fd)
			return -1, err
		}
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// isStaleSocket probes whether name refers to a socket file left behind by
// a process that no longer exists, the common cause of a spurious
// EADDRINUSE on bind.
func isStaleSocket(name string) bool {
	probe, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET, 0)
	if err != nil {
		return false
	}
	defer unix.Close(probe)
	err = unix.Connect(probe, &unix.SockaddrUnix{Name: name})
	return err == unix.ECONNREFUSED
}

func (t *posixTransport) AcceptAsync() error {
	t.armed = armAccept
	return nil
}

func (t *posixTransport) ReadAsync(dst []byte) error {
	t.armed = armRead
	t.readBuf = dst
	return nil
}

func (t *posixTransport) CompleteReadiness() (n int, endOfMessage bool, err error) {
	switch t.armed {
	case armAccept:
		return t.completeAccept()
	case armRead:
		return t.completeRead()
	default:
		return 0, true, api.New(api.KindPending, "no operation armed")
	}
}

func (t *posixTransport) completeAccept() (int, bool, error) {
	connFd, _, err := unix.Accept4(t.listenFd, unix.SOCK_NONBLOCK)
	t.armed = armNone
	if err != nil {
		if err == unix.EAGAIN {
			return 0, true, api.New(api.KindPending, "accept not ready")
		}
		return 0, true, err
	}
	t.connFd = connFd
	return 0, true, nil
}

// completeRead uses TIOCINQ (Linux's FIONREAD) to learn the pending datagram's exact size
// before reading it. SOCK_SEQPACKET has no partial-read continuation like a
// Windows message-mode pipe: a recv() into a too-small buffer discards the
// remainder instead of holding it for a follow-up read. Sizing first avoids
// that loss entirely instead of trying to recover from a truncated read.
func (t *posixTransport) completeRead() (n int, endOfMessage bool, err error) {
	pending, ferr := unix.IoctlGetInt(t.connFd, unix.TIOCINQ)
	if ferr == nil && pending > len(t.readBuf) {
		t.armed = armNone
		return 0, false, nil
	}

	got, _, rerr := unix.Recvfrom(t.connFd, t.readBuf, 0)
	t.readBuf = nil
	t.armed = armNone
	if rerr != nil {
		if rerr == unix.EAGAIN {
			return 0, false, api.New(api.KindPending, "read not ready")
		}
		return 0, true, rerr
	}
	if got == 0 {
		return 0, true, api.New(api.KindClosed, "peer closed connection")
	}
	return got, true, nil
}

func (t *posixTransport) WriteAll(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	// Poll for writability on EAGAIN rather than toggling the fd's
	// O_NONBLOCK flag: Send can run concurrently with the reactor's
	// non-blocking read on the same fd (see connection's transportHandle),
	// and flipping a fd-wide flag out from under that read would race it.
	for written := 0; written < len(b); {
		n, err := unix.Write(t.connFd, b[written:])
		if err != nil {
			if err == unix.EAGAIN {
				if perr := waitWritable(t.connFd); perr != nil {
					return perr
				}
				continue
			}
			return err
		}
		written += n
	}
	return nil
}

func waitWritable(fd int) error {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err := unix.Poll(pfd, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func (t *posixTransport) PeerIdentity() (PeerIdentity, error) {
	ucred, err := unix.GetsockoptUcred(t.connFd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return PeerIdentity{}, nil
	}
	pid := uint32(ucred.Pid)
	path, perr := os.Readlink("/proc/" + strconv.Itoa(int(pid)) + "/exe")
	if perr != nil {
		return PeerIdentity{ProcessID: pid}, nil
	}
	return PeerIdentity{ProcessID: pid, BinaryPath: path}, nil
}

func (t *posixTransport) CancelOutstanding() error {
	t.armed = armNone
	t.readBuf = nil
	return nil
}

func (t *posixTransport) Disconnect() error {
	if t.connFd >= 0 {
		unix.Close(t.connFd)
		t.connFd = -1
	}
	t.armed = armNone
	t.readBuf = nil
	return nil
}

func (t *posixTransport) Close() error {
	if t.connFd >= 0 {
		unix.Close(t.connFd)
		t.connFd = -1
	}
	if t.first && t.listenFd >= 0 {
		unix.Close(t.listenFd)
		_ = unix.Unlink(t.name)
		listenFdRegistry.Delete(t.name)
		t.listenFd = -1
	}
	return nil
}

func (t *posixTransport) ReadinessSource() WaitSource {
	if t.armed == armAccept {
		return t.listenFd
	}
	return t.connFd
}
