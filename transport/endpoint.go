// Package transport drives message's codec end to end over net.Conn:
// vectored writes on send, flat-stream decode on receive, and the
// REPLY_REQUIRED wait that gives a request either a paired response or a
// synthesized TIMEOUT. A request is transmitted once; it is not
// retransmitted while its sender waits.
package transport

import (
	"bufio"
	"io"
	"log"
	"net"
	"sync"

	"github.com/imace/galaxy/message"
	"github.com/imace/galaxy/metrics"
)

// sendQueueDepth bounds how many outgoing messages an Endpoint will buffer
// before Send blocks; deep enough to absorb a burst without unbounded growth.
const sendQueueDepth = 64

// Endpoint wraps a single net.Conn to one peer. Outgoing messages are
// encoded with the scatter/gather vector form and written with net.Buffers,
// one vectored syscall per message where the platform supports it. Incoming
// bytes are decoded with the flat-stream decoder from a buffered reader,
// since a stream socket offers no natural buffer-vector framing on receive.
type Endpoint struct {
	conn net.Conn
	peer message.PeerNode

	outbound chan message.Message
	closeWG  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewEndpoint wraps conn for communication with peer. Call Run to start its
// write-pump goroutine, and ReadLoop (usually in its own goroutine) to
// decode inbound frames.
func NewEndpoint(conn net.Conn, peer message.PeerNode) *Endpoint {
	return &Endpoint{
		conn:     conn,
		peer:     peer,
		outbound: make(chan message.Message, sendQueueDepth),
	}
}

// Peer returns the remote peer this endpoint is connected to.
func (e *Endpoint) Peer() message.PeerNode { return e.peer }

// Run drains the outbound queue onto the wire until the endpoint is closed.
// It is meant to run in its own goroutine for the lifetime of the endpoint.
func (e *Endpoint) Run() {
	e.closeWG.Add(1)
	defer e.closeWG.Done()
	for m := range e.outbound {
		if err := e.writeNow(m); err != nil {
			log.Printf("transport: write to peer %d failed: %v", e.peer, err)
			return
		}
	}
}

// Send enqueues m for emission. A message queued rather than written
// synchronously must have its payload buffers deep-copied first, since the
// producer only promises buffer stability for the duration of the call
// that handed the message to the transport.
func (e *Endpoint) Send(m message.Message) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return io.ErrClosedPipe
	}
	e.outbound <- m.CloneDataBuffers()
	return nil
}

// writeNow encodes and writes m synchronously.
func (e *Endpoint) writeNow(m message.Message) error {
	bufs, err := message.EncodeVector(m)
	if err != nil {
		return err
	}
	n, err := bufs.WriteTo(e.conn)
	if err != nil {
		return err
	}
	metrics.EncodeBytesTotal.WithLabelValues(m.Type().String(), "vector").Add(float64(n))
	return nil
}

// ReadLoop decodes messages from the connection until it errs or closes,
// invoking handler for each one. handler is called synchronously on this
// goroutine; callers needing concurrency should dispatch internally.
func (e *Endpoint) ReadLoop(handler func(message.Message)) error {
	r := bufio.NewReader(e.conn)
	for {
		m, err := message.DecodeFlat(r)
		if err != nil {
			metrics.DecodeErrorCount.WithLabelValues("flat").Inc()
			return err
		}
		message.AttachPeer(m, e.peer)
		handler(m)
	}
}

// Close shuts the endpoint down: no further sends are accepted and the
// underlying connection is closed once the write pump drains.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	close(e.outbound)
	e.closeWG.Wait()
	return e.conn.Close()
}
