//go:build !windows

package transport

import "golang.org/x/sys/unix"

// posixStopSource is an eventfd. Once signalled its counter stays
// non-zero, so level-triggered epoll keeps reporting it readable; Signal
// is naturally idempotent.
type posixStopSource int

func newStopSource() (StopSource, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return posixStopSource(fd), nil
}

func (s posixStopSource) Signal() error {
	buf := [8]byte{1}
	_, err := unix.Write(int(s), buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

func (s posixStopSource) Close() error {
	return unix.Close(int(s))
}
