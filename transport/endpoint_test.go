package transport

import (
	"io"
	"net"
	"testing"

	"github.com/go-test/deep"

	"github.com/imace/galaxy/message"
)

func TestEndpoint_SendReadLoopRoundTrip(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	epA := NewEndpoint(connA, 2)
	epB := NewEndpoint(connB, 1)
	go epA.Run()
	defer epA.Close()

	req, err := message.NewGet(2, message.Get, 0x10)
	if err != nil {
		t.Fatal(err)
	}
	req.SetID(99)

	sendErr := make(chan error, 1)
	go func() { sendErr <- epA.Send(req) }()

	got := make(chan message.Message, 1)
	go func() {
		_ = epB.ReadLoop(func(m message.Message) { got <- m })
	}()

	checkDecoded := func(m message.Message) {
		t.Helper()
		if m.Type() != message.Get {
			t.Fatalf("got type %s, want GET", m.Type())
		}
		if m.ID() != req.ID() {
			t.Fatalf("got id %d, want %d", m.ID(), req.ID())
		}
		if m.Peer() != epB.Peer() {
			t.Fatalf("ReadLoop should attach the endpoint's peer: got %d, want %d", m.Peer(), epB.Peer())
		}
		line, ok := m.(*message.LineMsg)
		if !ok {
			t.Fatalf("got %T, want *message.LineMsg", m)
		}
		if diff := deep.Equal(line.Line, req.Line); diff != nil {
			t.Fatalf("Line survived the wire with a diff: %v", diff)
		}
	}

	select {
	case m := <-got:
		checkDecoded(m)
	case err := <-sendErr:
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		// Send succeeded; keep waiting for the decoded message.
		checkDecoded(<-got)
	}
}

func TestEndpoint_SendAfterCloseFails(t *testing.T) {
	connA, connB := net.Pipe()
	defer connB.Close()

	ep := NewEndpoint(connA, 1)
	go ep.Run()
	if err := ep.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m, err := message.NewAck(1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ep.Send(m); err != io.ErrClosedPipe {
		t.Fatalf("Send after Close: got %v, want io.ErrClosedPipe", err)
	}
}
