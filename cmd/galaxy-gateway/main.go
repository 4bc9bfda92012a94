// Command galaxy-gateway runs one Galaxy transport endpoint: it listens for
// peer connections, dials the configured peer list, and exposes prometheus
// metrics on a separate port, the way this corpus's main.go runs its
// collection loop alongside a metrics exporter.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"strconv"
	"strings"

	"github.com/m-lab/go/flagx"
	"github.com/m-lab/go/prometheusx"
	"github.com/m-lab/go/rtx"

	"github.com/imace/galaxy/message"
	"github.com/imace/galaxy/node"
	"github.com/imace/galaxy/transport"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

var (
	listenAddr = flag.String("listen", ":7654", "Address to accept peer connections on.")
	selfID     = flag.Int("self", -1, "This node's PeerNode id.")
	peers      = flag.String("peers", "", "Comma-separated peer-id=host:port pairs, e.g. 1=10.0.0.1:7654,2=10.0.0.2:7654.")
	promPort   = flag.String("prom", ":9090", "Prometheus metrics export address and port.")
)

// parsePeers splits "id=addr,id=addr" into a registry.
func parsePeers(spec string) (*node.Registry, error) {
	reg := node.NewRegistry()
	if spec == "" {
		return reg, nil
	}
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, errInvalidPeerSpec(entry)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		reg.Register(message.PeerNode(id), parts[1])
	}
	return reg, nil
}

type errInvalidPeerSpec string

func (e errInvalidPeerSpec) Error() string { return "invalid peer spec: " + string(e) }

func main() {
	flag.Parse()
	flagx.ArgsFromEnv(flag.CommandLine)

	registry, err := parsePeers(*peers)
	rtx.Must(err, "Could not parse -peers")

	ctx := context.Background()
	promSrv := prometheusx.MustStartPrometheus(*promPort)
	defer promSrv.Shutdown(ctx)

	router := transport.NewRouter(registry)

	ln, err := net.Listen("tcp", *listenAddr)
	rtx.Must(err, "Could not listen on %s", *listenAddr)
	log.Printf("galaxy-gateway: node %d listening on %s", *selfID, *listenAddr)

	go acceptLoop(ln, router)

	for _, peer := range registry.Peers() {
		addr, err := registry.Resolve(peer)
		rtx.Must(err, "Could not resolve peer %d", peer)
		dialPeer(router, message.PeerNode(*selfID), peer, addr)
	}

	select {}
}

func acceptLoop(ln net.Listener, router *transport.Router) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("galaxy-gateway: accept failed: %v", err)
			continue
		}
		// Peer identity is transient and never carried by the message wire
		// format, so an inbound connection can't learn who dialed it from
		// message content alone: the dialer announces itself with a
		// handshake preamble before any message traffic.
		peer, err := transport.ReadHandshake(conn)
		if err != nil {
			log.Printf("galaxy-gateway: handshake failed: %v", err)
			conn.Close()
			continue
		}
		ep := transport.NewEndpoint(conn, peer)
		router.Attach(ep, func(m message.Message) {
			log.Printf("galaxy-gateway: unsolicited %s from peer %d", m.Type(), m.Peer())
		})
	}
}

func dialPeer(router *transport.Router, self, peer message.PeerNode, addr string) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Printf("galaxy-gateway: could not dial peer %d at %s: %v", peer, addr, err)
		return
	}
	if err := transport.WriteHandshake(conn, self); err != nil {
		log.Printf("galaxy-gateway: handshake to peer %d failed: %v", peer, err)
		conn.Close()
		return
	}
	ep := transport.NewEndpoint(conn, peer)
	router.Attach(ep, func(m message.Message) {
		log.Printf("galaxy-gateway: unsolicited %s from peer %d", m.Type(), m.Peer())
	})
}
