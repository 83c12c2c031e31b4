//go:build windows

package transport

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// golang.org/x/sys/windows does not wrap the named-pipe-specific Win32
// entry points (CreateNamedPipeW, ConnectNamedPipe, DisconnectNamedPipe,
// GetNamedPipeClientProcessId); everything else (ReadFile, WriteFile,
// GetOverlappedResult, CancelIoEx, events) is used straight from that
// package. This is a lazy-loaded kernel32 shim for exactly those named-pipe
// entry points, the same way a lazy DLL handle is used for any Win32
// function the wrapper package omits.
var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procCreateNamedPipeW              = modkernel32.NewProc("CreateNamedPipeW")
	procConnectNamedPipe              = modkernel32.NewProc("ConnectNamedPipe")
	procDisconnectNamedPipe           = modkernel32.NewProc("DisconnectNamedPipe")
	procGetNamedPipeClientProcessId   = modkernel32.NewProc("GetNamedPipeClientProcessId")
)

const (
	pipeAccessDuplex        = 0x00000003
	fileFlagOverlapped      = 0x40000000
	fileFlagFirstPipeInst   = 0x00080000
	pipeTypeMessage         = 0x00000004
	pipeReadmodeMessage     = 0x00000002
	pipeWait                = 0x00000000
	pipeRejectRemoteClients = 0x00000008
	pipeUnlimitedInstances  = 255
)

func createNamedPipe(name string, first bool, bufSize uint32) (windows.Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return windows.InvalidHandle, err
	}

	mode := uint32(pipeAccessDuplex | fileFlagOverlapped)
	if first {
		mode |= fileFlagFirstPipeInst
	}
	pipeMode := uint32(pipeTypeMessage | pipeReadmodeMessage | pipeWait | pipeRejectRemoteClients)

	r1, _, e1 := procCreateNamedPipeW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		uintptr(mode),
		uintptr(pipeMode),
		uintptr(pipeUnlimitedInstances),
		uintptr(bufSize),
		uintptr(bufSize),
		0,
		0,
	)
	h := windows.Handle(r1)
	if h == windows.InvalidHandle {
		return h, errnoOrFail(e1)
	}
	return h, nil
}

func connectNamedPipe(h windows.Handle, ov *windows.Overlapped) error {
	r1, _, e1 := procConnectNamedPipe.Call(uintptr(h), uintptr(unsafe.Pointer(ov)))
	if r1 == 0 {
		return errnoOrFail(e1)
	}
	return nil
}

func disconnectNamedPipe(h windows.Handle) error {
	r1, _, e1 := procDisconnectNamedPipe.Call(uintptr(h))
	if r1 == 0 {
		return errnoOrFail(e1)
	}
	return nil
}

func getNamedPipeClientProcessID(h windows.Handle) (uint32, error) {
	var pid uint32
	r1, _, e1 := procGetNamedPipeClientProcessId.Call(uintptr(h), uintptr(unsafe.Pointer(&pid)))
	if r1 == 0 {
		return 0, errnoOrFail(e1)
	}
	return pid, nil
}

func errnoOrFail(e error) error {
	if errno, ok := e.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	if e != nil {
		return e
	}
	return syscall.EINVAL
}
