package message

// Request/response correlation is deliberately NOT the language's built-in
// equality, so it lives here as a standalone predicate plus a hash-bucket
// key, and nowhere overloads ==.

// Pair reports whether b is a valid response to request a (or vice versa;
// the relation is symmetric in its arguments but asymmetric in meaning —
// callers normally invoke it as Pair(request, candidateResponse)).
//
//   - If a and b have the same Direction, or agree on whether they are a
//     response, they cannot be a request/response pair: fall back to
//     identity (pointer) equality.
//   - Otherwise their messageIds must match.
//   - If both have a concrete (non-broadcast) peer, the peers must match.
//   - If exactly one side is broadcast, any peer pairs — a response from any
//     node satisfies a broadcast request.
//   - Otherwise they do not pair.
func Pair(a, b Message) bool {
	sameShape := a.Direction() == b.Direction() || a.Flags().Response() == b.Flags().Response()
	if sameShape {
		return identical(a, b)
	}
	if a.ID() != b.ID() {
		return false
	}
	aPeer, bPeer := a.Peer(), b.Peer()
	if aPeer >= 0 && bPeer >= 0 {
		return aPeer == bPeer
	}
	if a.Flags().Broadcast() != b.Flags().Broadcast() {
		return true
	}
	return false
}

func identical(a, b Message) bool {
	return any(a) == any(b)
}

// PairingKey returns the hash-bucket key for m: messageId alone, so every
// candidate request/response pair collides into the same bucket before
// Pair disambiguates within it.
func PairingKey(m Message) MessageID { return m.ID() }

// AttachPeer sets m's transient peer field. It is how the transport records
// who actually sent an incoming message: peer is never serialized onto the
// wire, so it has to be attached out of band after a successful decode,
// which is also why this bypasses SetNode's outgoing-only StateError guard.
func AttachPeer(m Message, peer PeerNode) {
	if s, ok := m.(interface{ setPeer(PeerNode) }); ok {
		s.setPeer(peer)
	}
}
