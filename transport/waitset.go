package transport

// WaitSource is an opaque OS-level readiness primitive. Concrete values
// are produced only by this package's platform files; callers must treat
// them as tokens to pass to a WaitSet.
type WaitSource interface{}

// StopSource is a WaitSource that can additionally be signalled from any
// goroutine, used for the reactor's stop signal. Signal is idempotent.
type StopSource interface {
	WaitSource
	Signal() error
	Close() error
}

// WaitSet waits on an ordered list of readiness sources plus one stop
// source, reporting the index of whichever one signals first. The stop
// source always occupies the last index.
type WaitSet interface {
	// Arm replaces the sources being waited on. It must be called again
	// after every Wait call before the next Wait, since the set of
	// Connections can change between iterations.
	Arm(sources []WaitSource, stop StopSource) error

	// Wait blocks until exactly one source signals and returns its index
	// into the sources slice passed to Arm, or len(sources) if the stop
	// source signalled.
	Wait() (index int, err error)

	// Close releases any resources the wait set itself allocated. It does
	// not close the sources or stop source.
	Close() error
}

// NewWaitSet constructs the platform WaitSet implementation.
func NewWaitSet() (WaitSet, error) {
	return newWaitSet()
}

// NewStopSource constructs the platform StopSource implementation.
func NewStopSource() (StopSource, error) {
	return newStopSource()
}
