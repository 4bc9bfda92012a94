package transport

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-lab/go/logx"

	"github.com/imace/galaxy/message"
	"github.com/imace/galaxy/metrics"
	"github.com/imace/galaxy/node"
)

var warnLog = logx.NewLogEvery(nil, time.Second)

// DefaultReplyTimeout bounds how long Send waits for a paired response to a
// REPLY_REQUIRED request before synthesizing a TIMEOUT.
const DefaultReplyTimeout = 5 * time.Second

// waiter is a single pending request awaiting its paired response.
type waiter struct {
	request message.Message
	replyC  chan message.Message
}

// Router owns the peer table, the outgoing messageId counter, and the
// pairing cache: a map keyed by message.PairingKey, disambiguated by
// message.Pair on delivery.
type Router struct {
	registry *node.Registry

	nextID int64

	mu       sync.Mutex
	pending  map[message.MessageID][]*waiter
	endpoint map[message.PeerNode]*Endpoint

	ReplyTimeout time.Duration
}

// NewRouter returns a Router backed by registry for peer address resolution.
func NewRouter(registry *node.Registry) *Router {
	return &Router{
		registry:     registry,
		pending:      make(map[message.MessageID][]*waiter),
		endpoint:     make(map[message.PeerNode]*Endpoint),
		ReplyTimeout: DefaultReplyTimeout,
	}
}

// Attach registers ep as the live connection to ep.Peer() and starts its
// write pump and read loop. Incoming messages are routed to any matching
// waiter, and otherwise handed to unsolicited.
func (r *Router) Attach(ep *Endpoint, unsolicited func(message.Message)) {
	r.mu.Lock()
	r.endpoint[ep.Peer()] = ep
	r.mu.Unlock()

	go ep.Run()
	go func() {
		err := ep.ReadLoop(func(m message.Message) {
			if !r.deliver(m) && unsolicited != nil {
				unsolicited(m)
			}
		})
		if err != nil {
			warnLog.Printf("transport: read loop for peer %d ended: %v", ep.Peer(), err)
		}
		r.mu.Lock()
		delete(r.endpoint, ep.Peer())
		r.mu.Unlock()
	}()
}

// deliver tries to pair m against every waiter sharing its bucket. It
// returns true if a waiter consumed m.
func (r *Router) deliver(m message.Message) bool {
	r.mu.Lock()
	bucket := r.pending[message.PairingKey(m)]
	var matchIdx = -1
	for i, w := range bucket {
		if message.Pair(w.request, m) {
			matchIdx = i
			break
		}
	}
	var matched *waiter
	if matchIdx >= 0 {
		matched = bucket[matchIdx]
		bucket = append(bucket[:matchIdx], bucket[matchIdx+1:]...)
		if len(bucket) == 0 {
			delete(r.pending, message.PairingKey(m))
		} else {
			r.pending[message.PairingKey(m)] = bucket
		}
		metrics.PairingCacheSize.Dec()
	}
	r.mu.Unlock()

	if matched == nil {
		return false
	}
	matched.replyC <- m
	return true
}

// nextMessageID returns the next value from the monotonic per-router
// counter, used to assign a messageId to a request on first emission.
func (r *Router) nextMessageID() message.MessageID {
	return message.MessageID(atomic.AddInt64(&r.nextID, 1))
}

// Send transmits m, assigning it a messageId if unset. If m has
// REPLY_REQUIRED set, Send blocks until a paired response arrives or
// ReplyTimeout elapses, in which case it returns a synthesized TIMEOUT
// rather than an error — exactly as a real peer's reply would have
// arrived.
func (r *Router) Send(m message.Message) (message.Message, error) {
	if m.ID() == message.NoMessageID {
		m.SetID(r.nextMessageID())
	}

	start := time.Now()
	var w *waiter
	if m.Flags().ReplyRequired() {
		w = &waiter{request: m, replyC: make(chan message.Message, 1)}
		r.mu.Lock()
		key := message.PairingKey(m)
		r.pending[key] = append(r.pending[key], w)
		r.mu.Unlock()
		metrics.PairingCacheSize.Inc()
	}

	if err := r.transmit(m); err != nil {
		if w != nil {
			r.removeWaiter(m, w)
		}
		return nil, err
	}
	if w == nil {
		return nil, nil
	}

	var reply message.Message
	select {
	case reply = <-w.replyC:
	case <-time.After(r.ReplyTimeout):
		r.removeWaiter(m, w)
		metrics.TimeoutCount.WithLabelValues(m.Type().String()).Inc()
		t, err := message.NewTimeout(m)
		if err != nil {
			return nil, err
		}
		reply = t
	}
	metrics.RoundTripLatencyHistogram.WithLabelValues(m.Type().String()).Observe(time.Since(start).Seconds())
	return reply, nil
}

// removeWaiter drops w from the pending table, if it is still there. A
// concurrent deliver() may have already matched and removed it between
// the timeout firing and this call acquiring the lock, so absence is not
// an error — but it does mean the gauge must only move on an actual
// removal, or a race between the two paths would double-decrement it.
func (r *Router) removeWaiter(m message.Message, w *waiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := message.PairingKey(m)
	bucket := r.pending[key]
	for i, cand := range bucket {
		if cand == w {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(r.pending, key)
			} else {
				r.pending[key] = bucket
			}
			metrics.PairingCacheSize.Dec()
			return
		}
	}
}

// transmit writes m to its destination endpoint(s): every registered peer
// for a broadcast message, or the single resolved peer otherwise.
func (r *Router) transmit(m message.Message) error {
	if m.Flags().Broadcast() {
		peers := r.registry.Peers()
		if len(peers) == 0 {
			return fmt.Errorf("transport: broadcast with no registered peers")
		}
		for _, p := range peers {
			ep, err := r.endpointFor(p)
			if err != nil {
				warnLog.Printf("transport: broadcast skipping peer %d: %v", p, err)
				continue
			}
			if err := ep.Send(m); err != nil {
				warnLog.Printf("transport: broadcast send to peer %d failed: %v", p, err)
			}
		}
		return nil
	}
	ep, err := r.endpointFor(m.Peer())
	if err != nil {
		return err
	}
	return ep.Send(m)
}

func (r *Router) endpointFor(peer message.PeerNode) (*Endpoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.endpoint[peer]
	if !ok {
		return nil, fmt.Errorf("transport: no live endpoint for peer %d", peer)
	}
	return ep, nil
}
