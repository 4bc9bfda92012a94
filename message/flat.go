package message

import (
	"bytes"
	"io"
)

// EncodeFlat writes m's flat byte-stream encoding to w and returns the
// number of bytes written. The layout is
//
//	[tag:1][messageId:8][flags:1][variant header…][length:2][bytes]...
//
// with one [length][bytes] pair per payload buffer, in order. It always
// writes exactly m.Size() bytes.
func EncodeFlat(w io.Writer, m Message) (int, error) {
	buf := new(bytes.Buffer)
	buf.Grow(m.Size())
	writeCommonHeader(buf, m)

	switch v := m.(type) {
	case *AckMsg:
		// no fields.
	case *LineMsg:
		writeUint64(buf, uint64(v.Line))
	case *InvMsg:
		writeUint64(buf, uint64(v.Line))
		writeUint16(buf, uint16(v.PreviousOwner))
	case *PutMsg:
		if err := checkPayloadLen("data", len(v.Data.Bytes)); err != nil {
			return 0, err
		}
		writeUint64(buf, uint64(v.Line))
		writeUint64(buf, uint64(v.Version))
		writeUint16(buf, uint16(len(v.Data.Bytes)))
		buf.Write(v.Data.Bytes)
	case *PutxMsg:
		if err := checkPayloadLen("sharers", len(v.Sharers)); err != nil {
			return 0, err
		}
		if err := checkPayloadLen("data", len(v.Data.Bytes)); err != nil {
			return 0, err
		}
		writeUint64(buf, uint64(v.Line))
		writeUint64(buf, uint64(v.Version))
		writeUint16(buf, uint16(len(v.Sharers)))
		for _, s := range v.Sharers {
			writeUint16(buf, uint16(s))
		}
		writeUint16(buf, uint16(len(v.Data.Bytes)))
		buf.Write(v.Data.Bytes)
	case *ChngdOwnrMsg:
		writeUint64(buf, uint64(v.Line))
		writeBool(buf, v.Certain)
		writeUint16(buf, uint16(v.NewOwner))
	case *BackupackMsg:
		writeUint64(buf, uint64(v.Line))
		writeUint64(buf, uint64(v.Version))
	case *BackupPacketMsg:
		writeUint64(buf, v.ID)
		writeUint32(buf, uint32(len(v.Backups)))
		for _, b := range v.Backups {
			if err := checkPayloadLen("data", len(b.Data.Bytes)); err != nil {
				return 0, err
			}
			writeUint64(buf, uint64(b.Line))
			writeUint64(buf, uint64(b.Version))
			writeUint16(buf, uint16(len(b.Data.Bytes)))
			buf.Write(b.Data.Bytes)
		}
	case *BackupPacketAckMsg:
		writeUint64(buf, v.ID)
	case *MsgMsg:
		if err := checkPayloadLen("data", len(v.Data)); err != nil {
			return 0, err
		}
		writeUint64(buf, uint64(v.Line))
		writeUint16(buf, uint16(len(v.Data)))
		buf.Write(v.Data)
	default:
		return 0, framingErrorf("encode", "unknown message implementation %T", m)
	}

	return w.Write(buf.Bytes())
}

// DecodeFlat reads one message in its flat byte-stream encoding from r. It
// returns a FramingError for an unrecognized tag byte or a truncated read.
// The returned message has Direction() == Incoming.
func DecodeFlat(r io.Reader) (Message, error) {
	fr := &flatReader{r: r}

	tagByte, err := fr.readUint8()
	if err != nil {
		return nil, framingErrorf("tag", "%w", err)
	}
	typ := Type(tagByte)
	if !typ.valid() {
		return nil, framingErrorf("tag", "unknown tag byte %d", tagByte)
	}

	idRaw, err := fr.readUint64()
	if err != nil {
		return nil, framingErrorf("messageId", "%w", err)
	}
	id := MessageID(idRaw)

	flagsRaw, err := fr.readUint8()
	if err != nil {
		return nil, framingErrorf("flags", "%w", err)
	}
	flags := Flags(flagsRaw)

	b := base{typ: typ, id: id, flags: flags, peer: NoPeer, dir: Incoming}

	switch typ {
	case Ack:
		return &AckMsg{base: b}, nil

	case Get, Getx, Del, Invack, NotFound, Msgack, Timeout:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		return &LineMsg{base: b, Line: Line(line)}, nil

	case Inv:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		prev, err := fr.readUint16()
		if err != nil {
			return nil, framingErrorf("previousOwner", "%w", err)
		}
		return &InvMsg{base: b, Line: Line(line), PreviousOwner: PeerNode(prev)}, nil

	case Put, Backup:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		version, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("version", "%w", err)
		}
		data, err := readFlatPayload(fr)
		if err != nil {
			return nil, err
		}
		return &PutMsg{base: b, Line: Line(line), Version: Version(version), Data: Buffer{Bytes: data, Owned: Owned}}, nil

	case Putx:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		version, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("version", "%w", err)
		}
		count, err := fr.readUint16()
		if err != nil {
			return nil, framingErrorf("sharerCount", "%w", err)
		}
		sharers := make([]PeerNode, count)
		for i := range sharers {
			s, err := fr.readUint16()
			if err != nil {
				return nil, framingErrorf("sharer", "%w", err)
			}
			sharers[i] = PeerNode(s)
		}
		data, err := readFlatPayload(fr)
		if err != nil {
			return nil, err
		}
		return &PutxMsg{base: b, Line: Line(line), Version: Version(version), Sharers: sharers, Data: Buffer{Bytes: data, Owned: Owned}}, nil

	case ChngdOwnr:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		certain, err := fr.readBool()
		if err != nil {
			return nil, framingErrorf("certain", "%w", err)
		}
		newOwner, err := fr.readUint16()
		if err != nil {
			return nil, framingErrorf("newOwner", "%w", err)
		}
		return &ChngdOwnrMsg{base: b, Line: Line(line), Certain: certain, NewOwner: PeerNode(newOwner)}, nil

	case Backupack:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		version, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("version", "%w", err)
		}
		return &BackupackMsg{base: b, Line: Line(line), Version: Version(version)}, nil

	case BackupPacket:
		id, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("id", "%w", err)
		}
		count, err := fr.readUint32()
		if err != nil {
			return nil, framingErrorf("count", "%w", err)
		}
		backups := make([]*PutMsg, count)
		for i := range backups {
			line, err := fr.readUint64()
			if err != nil {
				return nil, framingErrorf("line", "%w", err)
			}
			version, err := fr.readUint64()
			if err != nil {
				return nil, framingErrorf("version", "%w", err)
			}
			data, err := readFlatPayload(fr)
			if err != nil {
				return nil, err
			}
			backups[i] = &PutMsg{
				base:    base{typ: Backup, id: NoMessageID, peer: b.peer, dir: Incoming},
				Line:    Line(line),
				Version: Version(version),
				Data:    Buffer{Bytes: data, Owned: Owned},
			}
		}
		return &BackupPacketMsg{base: b, ID: id, Backups: backups}, nil

	case BackupPacketack:
		id, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("id", "%w", err)
		}
		return &BackupPacketAckMsg{base: b, ID: id}, nil

	case Msg:
		line, err := fr.readUint64()
		if err != nil {
			return nil, framingErrorf("line", "%w", err)
		}
		data, err := readFlatPayload(fr)
		if err != nil {
			return nil, err
		}
		return &MsgMsg{base: b, Line: Line(line), Data: data}, nil
	}

	return nil, framingErrorf("tag", "unhandled tag %s", typ)
}

// readFlatPayload reads a [length:2][bytes] pair, rejecting an oversized
// declared length before attempting to read it.
func readFlatPayload(fr *flatReader) ([]byte, error) {
	length, err := fr.readUint16()
	if err != nil {
		return nil, framingErrorf("payloadLength", "%w", err)
	}
	if int(length) > MaxPayloadLen {
		return nil, framingErrorf("payloadLength", "declared length %d exceeds maximum of %d", length, MaxPayloadLen)
	}
	return fr.readFull(int(length))
}
