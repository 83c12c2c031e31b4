//go:build !windows

package transport

import (
	"golang.org/x/sys/unix"

	"github.com/quillhaven/agentcore/api"
)

// posixWaitSet is a level-triggered epoll set shared across pooled
// listeners. Level-triggered (not EPOLLET) is required here: completeRead
// can leave a datagram pending on purpose so the caller can grow its
// buffer, and the fd must keep reporting readable until that datagram is
// actually drained.
type posixWaitSet struct {
	epfd    int
	sources []WaitSource
	stopFd  int
}

func newWaitSet() (WaitSet, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &posixWaitSet{epfd: epfd}, nil
}

func (w *posixWaitSet) Arm(sources []WaitSource, stop StopSource) error {
	unix.Close(w.epfd)
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return err
	}
	w.epfd = epfd

	added := make(map[int]bool, len(sources))
	for _, s := range sources {
		fd, ok := s.(int)
		if !ok {
			return api.New(api.KindStopSourceUnavailable, "wait source is not a file descriptor")
		}
		if added[fd] {
			// Every pooled LISTENING Connection shares the same listening
			// socket's fd (see transport_posix.go's listenFdRegistry) and
			// calls accept4 against it independently; epoll only needs to
			// watch the fd once regardless of how many sources name it.
			continue
		}
		added[fd] = true
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			return err
		}
	}

	sfd, ok := stop.(posixStopSource)
	if !ok {
		return api.New(api.KindStopSourceUnavailable, "stop source is not an eventfd")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(sfd)}
	if err := unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, int(sfd), &ev); err != nil {
		return err
	}

	w.sources = sources
	w.stopFd = int(sfd)
	return nil
}

func (w *posixWaitSet) Wait() (int, error) {
	var events [1]unix.EpollEvent
	for {
		n, err := unix.EpollWait(w.epfd, events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return 0, err
		}
		if n == 0 {
			continue
		}

		fd := int(events[0].Fd)
		if fd == w.stopFd {
			return len(w.sources), nil
		}
		for i, s := range w.sources {
			if sf, ok := s.(int); ok && sf == fd {
				return i, nil
			}
		}
		return 0, api.New(api.KindStopSourceUnavailable, "epoll returned an unrecognized fd").
			WithContext("fd", fd)
	}
}

func (w *posixWaitSet) Close() error {
	return unix.Close(w.epfd)
}
