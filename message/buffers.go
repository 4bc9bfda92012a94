package message

// Ownership tags a payload Buffer so the transport can decide, without
// inspecting contents, whether it needs to copy before queuing a message
// for deferred send.
type Ownership uint8

const (
	// Owned buffers belong exclusively to the message; the transport may
	// mutate or consume them freely.
	Owned Ownership = iota
	// Borrowed buffers point into storage the message does not own (e.g.
	// cache-managed storage). The transport must copy a Borrowed buffer
	// before it can outlive the synchronous send call that produced it.
	Borrowed
)

// Buffer is a single opaque payload buffer attached to a PUT, PUTX, or
// BACKUP message.
type Buffer struct {
	Bytes []byte
	Owned Ownership
}

// clone deep-copies b into a freshly Owned buffer.
func (b Buffer) clone() Buffer {
	if b.Bytes == nil {
		return Buffer{Owned: Owned}
	}
	cp := make([]byte, len(b.Bytes))
	copy(cp, b.Bytes)
	return Buffer{Bytes: cp, Owned: Owned}
}

// newOutgoingBuffer wraps data as the "fresh" buffer 0 of an outgoing
// message: the producer promises it is stable only for the duration of the
// synchronous send call, so it is marked Owned and left to the transport to
// decide whether it must still be cloned before queuing.
func newOutgoingBuffer(data []byte) Buffer {
	return Buffer{Bytes: data, Owned: Owned}
}
