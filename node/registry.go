// Package node is the directory of known Galaxy peers: a map from
// message.PeerNode to a dialable address, guarded by a mutex. It replaces
// the cluster membership service referenced (and left out of scope) by the
// messaging core: this package only resolves addresses for peers it has
// already been told about.
package node

import (
	"fmt"
	"sort"
	"sync"

	"github.com/imace/galaxy/message"
)

// ErrUnknownPeer is returned by Resolve for a peer that was never
// registered.
type ErrUnknownPeer struct {
	Peer message.PeerNode
}

func (e *ErrUnknownPeer) Error() string {
	return fmt.Sprintf("node: unknown peer %d", e.Peer)
}

// Registry is a thread-safe directory of peer addresses.
type Registry struct {
	mu        sync.RWMutex
	addresses map[message.PeerNode]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{addresses: make(map[message.PeerNode]string)}
}

// Register associates peer with a dialable address, overwriting any prior
// entry.
func (r *Registry) Register(peer message.PeerNode, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addresses[peer] = address
}

// Unregister removes peer from the directory.
func (r *Registry) Unregister(peer message.PeerNode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.addresses, peer)
}

// Resolve returns the address registered for peer, or ErrUnknownPeer if
// peer is message.NoPeer or was never registered.
func (r *Registry) Resolve(peer message.PeerNode) (string, error) {
	if peer == message.NoPeer {
		return "", &ErrUnknownPeer{Peer: peer}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.addresses[peer]
	if !ok {
		return "", &ErrUnknownPeer{Peer: peer}
	}
	return addr, nil
}

// Peers returns every registered peer, sorted. A broadcast request carries
// no peer list of its own; the transport expands "every node" against this
// registry at send time.
func (r *Registry) Peers() []message.PeerNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]message.PeerNode, 0, len(r.addresses))
	for p := range r.addresses {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.addresses)
}
