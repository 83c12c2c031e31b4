package connection

import (
	"sync"

	"github.com/google/uuid"

	"github.com/quillhaven/agentcore/transport"
)

// transportHandle lets an Event outlive the Connection slot it was read
// from. A Connection starts as the sole owner (refs=1); constructing an
// Event against it acquires a second ref. If the Connection needs to reset
// while an Event still holds one, it detaches to a freshly created
// transport instead of disturbing the one the Event may still Send
// against, and lets the old handle's refcount reach zero on its own —
// see §9's "Event vs Connection lifetime" design note.
//
// id identifies this particular physical transport across log lines. A
// detach in Reset hands a Connection a new handle with a new id, which is
// what lets diagnostics distinguish "the old transport an Event is still
// draining" from "the new one now listening" when both exist at once.
type transportHandle struct {
	mu   sync.Mutex
	id   string
	t    transport.Transport
	refs int
}

func newTransportHandle(t transport.Transport) *transportHandle {
	return &transportHandle{id: uuid.NewString(), t: t, refs: 1}
}

func (h *transportHandle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// release drops a reference, closing the underlying transport once the
// count reaches zero.
func (h *transportHandle) release() {
	h.mu.Lock()
	h.refs--
	closeNow := h.refs == 0
	h.mu.Unlock()
	if closeNow {
		h.t.Close()
	}
}

func (h *transportHandle) soleOwner() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs == 1
}
