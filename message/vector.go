package message

import (
	"encoding/binary"
	"net"
)

// EncodeVector returns m's scatter/gather encoding as a net.Buffers: a
// single header buffer holding the common header, variant fields, and every
// payload length (batched, not colocated with its bytes), followed by one
// net.Buffers element per payload buffer, passed by reference rather than
// copied. A vector-form writer (net.Buffers.WriteTo) can hand every element
// straight to writev without an intermediate copy.
func EncodeVector(m Message) (net.Buffers, error) {
	header := make([]byte, 0, m.Size1())
	header = appendUint8(header, uint8(m.Type()))
	header = appendUint64(header, uint64(m.ID()))
	header = appendUint8(header, uint8(m.Flags()))

	var payloads [][]byte

	switch v := m.(type) {
	case *AckMsg:
		// no fields.
	case *LineMsg:
		header = appendUint64(header, uint64(v.Line))
	case *InvMsg:
		header = appendUint64(header, uint64(v.Line))
		header = appendUint16(header, uint16(v.PreviousOwner))
	case *PutMsg:
		if err := checkPayloadLen("data", len(v.Data.Bytes)); err != nil {
			return nil, err
		}
		header = appendUint64(header, uint64(v.Line))
		header = appendUint64(header, uint64(v.Version))
		header = appendUint16(header, uint16(len(v.Data.Bytes)))
		payloads = append(payloads, v.Data.Bytes)
	case *PutxMsg:
		if err := checkPayloadLen("sharers", len(v.Sharers)); err != nil {
			return nil, err
		}
		if err := checkPayloadLen("data", len(v.Data.Bytes)); err != nil {
			return nil, err
		}
		header = appendUint64(header, uint64(v.Line))
		header = appendUint64(header, uint64(v.Version))
		header = appendUint16(header, uint16(len(v.Sharers)))
		for _, s := range v.Sharers {
			header = appendUint16(header, uint16(s))
		}
		header = appendUint16(header, uint16(len(v.Data.Bytes)))
		payloads = append(payloads, v.Data.Bytes)
	case *ChngdOwnrMsg:
		header = appendUint64(header, uint64(v.Line))
		header = appendBool(header, v.Certain)
		header = appendUint16(header, uint16(v.NewOwner))
	case *BackupackMsg:
		header = appendUint64(header, uint64(v.Line))
		header = appendUint64(header, uint64(v.Version))
	case *BackupPacketMsg:
		header = appendUint64(header, v.ID)
		header = appendUint32(header, uint32(len(v.Backups)))
		// Vector form batches the fixed-width fields of every contained
		// backup first, then all lengths, then the payload references —
		// never interleaving a length with its own bytes the way the flat
		// form does.
		for _, b := range v.Backups {
			header = appendUint64(header, uint64(b.Line))
			header = appendUint64(header, uint64(b.Version))
		}
		for _, b := range v.Backups {
			if err := checkPayloadLen("data", len(b.Data.Bytes)); err != nil {
				return nil, err
			}
			header = appendUint16(header, uint16(len(b.Data.Bytes)))
		}
		for _, b := range v.Backups {
			payloads = append(payloads, b.Data.Bytes)
		}
	case *BackupPacketAckMsg:
		header = appendUint64(header, v.ID)
	case *MsgMsg:
		if err := checkPayloadLen("data", len(v.Data)); err != nil {
			return nil, err
		}
		header = appendUint64(header, uint64(v.Line))
		header = appendUint16(header, uint16(len(v.Data)))
		header = append(header, v.Data...)
	default:
		return nil, framingErrorf("encode", "unknown message implementation %T", m)
	}

	out := make(net.Buffers, 0, 1+len(payloads))
	out = append(out, header)
	out = append(out, payloads...)
	return out, nil
}

// DecodeVector decodes one message from a single contiguous buffer holding
// the vector form (e.g. after reassembly off the wire, or when the caller
// already owns a flattened copy). Every payload buffer in the result is a
// zero-copy, capacity-capped slice into buf and is marked Borrowed: callers
// that retain the message past the lifetime of buf must CloneDataBuffers
// first.
//
// For a message with at most one payload buffer the two forms produce the
// same bytes, since that single length directly precedes its payload in
// both. For a BACKUP_PACKET with two or more contained backups they differ:
// decoding the vector form's byte layout with DecodeFlat (or vice versa)
// produces garbage or a FramingError, since the two forms place lengths
// differently; it is the caller's responsibility to know which form it
// received.
func DecodeVector(buf []byte) (Message, error) {
	c := &cursor{buf: buf}

	tagByte, err := c.uint8()
	if err != nil {
		return nil, err
	}
	typ := Type(tagByte)
	if !typ.valid() {
		return nil, framingErrorf("tag", "unknown tag byte %d", tagByte)
	}

	idRaw, err := c.uint64()
	if err != nil {
		return nil, err
	}
	flagsRaw, err := c.uint8()
	if err != nil {
		return nil, err
	}

	b := base{typ: typ, id: MessageID(idRaw), flags: Flags(flagsRaw), peer: NoPeer, dir: Incoming}

	switch typ {
	case Ack:
		return &AckMsg{base: b}, nil

	case Get, Getx, Del, Invack, NotFound, Msgack, Timeout:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		return &LineMsg{base: b, Line: Line(line)}, nil

	case Inv:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		prev, err := c.uint16()
		if err != nil {
			return nil, err
		}
		return &InvMsg{base: b, Line: Line(line), PreviousOwner: PeerNode(prev)}, nil

	case Put, Backup:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		version, err := c.uint64()
		if err != nil {
			return nil, err
		}
		data, err := takePayload(c)
		if err != nil {
			return nil, err
		}
		return &PutMsg{base: b, Line: Line(line), Version: Version(version), Data: Buffer{Bytes: data, Owned: Borrowed}}, nil

	case Putx:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		version, err := c.uint64()
		if err != nil {
			return nil, err
		}
		count, err := c.uint16()
		if err != nil {
			return nil, err
		}
		sharers := make([]PeerNode, count)
		for i := range sharers {
			s, err := c.uint16()
			if err != nil {
				return nil, err
			}
			sharers[i] = PeerNode(s)
		}
		data, err := takePayload(c)
		if err != nil {
			return nil, err
		}
		return &PutxMsg{base: b, Line: Line(line), Version: Version(version), Sharers: sharers, Data: Buffer{Bytes: data, Owned: Borrowed}}, nil

	case ChngdOwnr:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		certain, err := c.boolean()
		if err != nil {
			return nil, err
		}
		newOwner, err := c.uint16()
		if err != nil {
			return nil, err
		}
		return &ChngdOwnrMsg{base: b, Line: Line(line), Certain: certain, NewOwner: PeerNode(newOwner)}, nil

	case Backupack:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		version, err := c.uint64()
		if err != nil {
			return nil, err
		}
		return &BackupackMsg{base: b, Line: Line(line), Version: Version(version)}, nil

	case BackupPacket:
		id, err := c.uint64()
		if err != nil {
			return nil, err
		}
		count, err := c.uint32()
		if err != nil {
			return nil, err
		}
		lines := make([]Line, count)
		versions := make([]Version, count)
		for i := range lines {
			l, err := c.uint64()
			if err != nil {
				return nil, err
			}
			lines[i] = Line(l)
			v, err := c.uint64()
			if err != nil {
				return nil, err
			}
			versions[i] = Version(v)
		}
		lengths := make([]uint16, count)
		for i := range lengths {
			l, err := c.uint16()
			if err != nil {
				return nil, err
			}
			lengths[i] = l
		}
		backups := make([]*PutMsg, count)
		for i := range backups {
			data, err := c.take(int(lengths[i]))
			if err != nil {
				return nil, err
			}
			backups[i] = &PutMsg{
				base:    base{typ: Backup, id: NoMessageID, peer: b.peer, dir: Incoming},
				Line:    lines[i],
				Version: versions[i],
				Data:    Buffer{Bytes: data, Owned: Borrowed},
			}
		}
		return &BackupPacketMsg{base: b, ID: id, Backups: backups}, nil

	case BackupPacketack:
		id, err := c.uint64()
		if err != nil {
			return nil, err
		}
		return &BackupPacketAckMsg{base: b, ID: id}, nil

	case Msg:
		line, err := c.uint64()
		if err != nil {
			return nil, err
		}
		data, err := takePayload(c)
		if err != nil {
			return nil, err
		}
		// MsgMsg.Data is inline, not a borrowed payload buffer, but it was
		// still sliced zero-copy out of buf: copy it so the message does not
		// alias caller-owned memory with no ownership tag to warn about it.
		owned := append([]byte(nil), data...)
		return &MsgMsg{base: b, Line: Line(line), Data: owned}, nil
	}

	return nil, framingErrorf("tag", "unhandled tag %s", typ)
}

func takePayload(c *cursor) ([]byte, error) {
	length, err := c.uint16()
	if err != nil {
		return nil, err
	}
	if int(length) > MaxPayloadLen {
		return nil, framingErrorf("payloadLength", "declared length %d exceeds maximum of %d", length, MaxPayloadLen)
	}
	return c.take(int(length))
}

func appendUint8(b []byte, v uint8) []byte { return append(b, v) }

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendUint16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}
