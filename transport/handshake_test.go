package transport

import (
	"net"
	"testing"

	"github.com/imace/galaxy/message"
)

func TestHandshake_RoundTrip(t *testing.T) {
	connA, connB := net.Pipe()
	defer connA.Close()
	defer connB.Close()

	done := make(chan error, 1)
	go func() { done <- WriteHandshake(connA, 7) }()

	got, err := ReadHandshake(connB)
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}
	if got != message.PeerNode(7) {
		t.Fatalf("got peer %d, want 7", got)
	}
}
