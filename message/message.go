package message

import "time"

// Message is the common interface implemented by every variant. Equality
// between two Messages for request/response correlation is never structural
// — use Pair and PairingKey (pairing.go), not ==.
type Message interface {
	// Type returns the wire tag for this message.
	Type() Type
	// ID returns the messageId, or NoMessageID if unassigned.
	ID() MessageID
	// SetID assigns the messageId. Used by the transport on first emission
	// of a non-response request; responses should instead be built with a
	// response constructor, which copies the request's id automatically.
	SetID(MessageID)
	// Flags returns the current flag bitset.
	Flags() Flags
	// SetReplyRequired toggles FlagReplyRequired on an outgoing, non-response
	// message. It is a StateError to call this on an incoming message or on
	// a response.
	SetReplyRequired(bool) error
	// Peer returns the destination (outgoing) or source (incoming) peer.
	// NoPeer means broadcast (outgoing only) or unset.
	Peer() PeerNode
	// SetNode sets the peer. On outgoing messages this re-derives
	// FlagBroadcast (broadcast iff peer == NoPeer). It is a StateError to
	// call this on an incoming message.
	SetNode(PeerNode) error
	// Direction reports whether this message was constructed locally
	// (Outgoing) or decoded off the wire (Incoming).
	Direction() Direction
	// SetIncoming marks the message as received. Called by the transport
	// after a successful decode.
	SetIncoming()
	// Timestamp returns the transient send/arrival time.
	Timestamp() time.Time
	// SetTimestamp sets the transient send/arrival time.
	SetTimestamp(time.Time)
	// Clone returns a shallow copy: payload buffers, if any, are shared with
	// the original.
	Clone() Message
	// CloneDataBuffers returns a copy with all payload buffers deep-copied
	// into independently owned storage. This is the primitive the transport
	// invokes before deferring a send.
	CloneDataBuffers() Message
	// Size returns the exact flat-stream encoded length of the message.
	Size() int
	// Size1 returns the header portion of the flat-stream encoding:
	// everything except payload bodies, but including payload length
	// prefixes.
	Size1() int
}

// base holds the fields common to every variant: the serialized header
// (type, messageId, flags) and the transient sidecar metadata (peer,
// direction, timestamp) that is never put on the wire.
type base struct {
	typ   Type
	id    MessageID
	flags Flags

	peer PeerNode
	dir  Direction
	ts   time.Time
}

func (b *base) Type() Type { return b.typ }

func (b *base) ID() MessageID { return b.id }

func (b *base) SetID(id MessageID) { b.id = id }

func (b *base) Flags() Flags { return b.flags }

func (b *base) SetReplyRequired(v bool) error {
	if b.dir == Incoming {
		return stateErrorf("SetReplyRequired", "cannot set REPLY_REQUIRED on an incoming message")
	}
	if b.flags.Response() {
		return stateErrorf("SetReplyRequired", "cannot set REPLY_REQUIRED on a response")
	}
	b.flags = b.flags.with(FlagReplyRequired, v)
	return nil
}

func (b *base) Peer() PeerNode { return b.peer }

func (b *base) SetNode(peer PeerNode) error {
	if b.dir == Incoming {
		return stateErrorf("SetNode", "cannot change peer of an incoming message")
	}
	b.peer = peer
	b.flags = b.flags.with(FlagBroadcast, peer == NoPeer)
	return nil
}

// setPeer sets the transient peer field directly, bypassing SetNode's
// outgoing-only StateError guard. It backs the package-level AttachPeer,
// which the transport calls after a successful decode — peer is never
// carried on the wire, so something has to attach it out of band.
func (b *base) setPeer(peer PeerNode) { b.peer = peer }

func (b *base) Direction() Direction { return b.dir }

func (b *base) SetIncoming() { b.dir = Incoming }

func (b *base) Timestamp() time.Time { return b.ts }

func (b *base) SetTimestamp(t time.Time) { b.ts = t }

// size1Common is the encoded length of the shared [tag:1][messageId:8][flags:1]
// header, common to every variant's flat and vector forms.
const size1Common = 1 + 8 + 1
