package transport

import (
	"encoding/binary"
	"io"
	"net"

	"github.com/imace/galaxy/message"
)

// WriteHandshake sends self's PeerNode id as a fixed 2-byte preamble ahead
// of any message traffic on conn. Peer identity is transient and never
// carried by the message wire format itself (AttachPeer fills it in from
// whatever Endpoint decoded the bytes), so a dialing node has to announce
// itself out of band before the accepting side can key its Router and
// Endpoint by the right id.
func WriteHandshake(conn net.Conn, self message.PeerNode) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(self))
	_, err := conn.Write(buf[:])
	return err
}

// ReadHandshake reads the 2-byte peer-id preamble written by WriteHandshake.
func ReadHandshake(conn net.Conn) (message.PeerNode, error) {
	var buf [2]byte
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		return message.NoPeer, err
	}
	return message.PeerNode(binary.BigEndian.Uint16(buf[:])), nil
}
