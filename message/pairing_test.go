package message

import "testing"

// A broadcast request pairs with a unicast response from any peer
// carrying the same messageId.
func TestPair_BroadcastRequestPairsAnyPeerResponse(t *testing.T) {
	req, err := NewBroadcastInv(0x42, 3)
	if err != nil {
		t.Fatal(err)
	}
	req.SetID(7)

	// Simulate what DecodeFlat produces for an INVACK actually sent by a
	// concrete peer (9): peer is transient, set by the transport on
	// receive, never decoded from the wire.
	resp := &LineMsg{
		base: base{typ: Invack, id: req.ID(), flags: FlagResponse, peer: 9, dir: Incoming},
		Line: 0x42,
	}

	if !Pair(req, resp) {
		t.Fatal("broadcast request should pair with a unicast response sharing its messageId")
	}
	if PairingKey(req) != PairingKey(resp) {
		t.Fatal("pairing symmetry: paired messages must hash to the same bucket")
	}
}

func TestPair_MismatchedMessageIDNeverPairs(t *testing.T) {
	a := must(NewGet(1, Get, 5))
	a.SetID(1)
	b := must(NewGet(1, Get, 5))
	b.SetID(2)
	b.SetIncoming()

	if Pair(a, b) {
		t.Fatal("messages with different messageIds should never pair")
	}
}

func TestPair_UnicastPeerMismatchDoesNotPair(t *testing.T) {
	req := must(NewGet(3, Get, 5))
	req.SetID(10)

	otherPeerResp := &LineMsg{base: base{typ: Invack, id: 10, flags: FlagResponse, peer: 4, dir: Incoming}, Line: 5}

	if Pair(req, otherPeerResp) {
		t.Fatal("unicast request should not pair with a response from a different concrete peer")
	}
}

func TestPair_SameShapeFallsBackToIdentity(t *testing.T) {
	a := must(NewAck(1))
	a.SetID(1)
	b := must(NewAck(1))
	b.SetID(1)

	if Pair(a, b) {
		t.Fatal("two distinct outgoing non-response messages should not pair (identity fallback)")
	}
	if !Pair(a, a) {
		t.Fatal("a message should pair with itself under the identity fallback")
	}
}

func TestPair_TimeoutPairsByMessageID(t *testing.T) {
	req := must(NewGet(2, Get, 99))
	req.SetID(55)

	timeout, err := NewTimeout(req)
	if err != nil {
		t.Fatal(err)
	}
	timeout.SetIncoming()

	if !Pair(req, timeout) {
		t.Fatal("a TIMEOUT should pair with the request it was synthesized for")
	}
}
