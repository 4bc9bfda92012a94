package message

import (
	"bytes"
	"encoding/binary"
	"io"
)

// This file holds the low-level big-endian primitives of the two wire
// encodings: the [tag:1][messageId:8][flags:1] common-header writer, the
// bytes.Buffer write helpers and flatReader used by flat.go, and the cursor
// used by vector.go's decoder. vector.go's encoder builds its header with
// its own append helpers (appendUint8 and friends) rather than these
// writers.

func writeUint8(w *bytes.Buffer, v uint8)   { w.WriteByte(v) }
func writeBool(w *bytes.Buffer, v bool) {
	if v {
		w.WriteByte(1)
	} else {
		w.WriteByte(0)
	}
}
func writeUint16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}
func writeUint32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}
func writeUint64(w *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

// writeCommonHeader writes [tag:1][messageId:8][flags:1].
func writeCommonHeader(w *bytes.Buffer, m Message) {
	writeUint8(w, uint8(m.Type()))
	writeUint64(w, uint64(m.ID()))
	writeUint8(w, uint8(m.Flags()))
}

// flatReader sequentially decodes the flat byte-stream form from an
// io.Reader. It never looks ahead further than one field at a time, since a
// stream socket offers no addressable backing array to slice into.
type flatReader struct {
	r io.Reader
}

func (fr *flatReader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (fr *flatReader) readUint8() (uint8, error) {
	b, err := fr.readFull(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (fr *flatReader) readBool() (bool, error) {
	b, err := fr.readUint8()
	return b != 0, err
}

func (fr *flatReader) readUint16() (uint16, error) {
	b, err := fr.readFull(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (fr *flatReader) readUint32() (uint32, error) {
	b, err := fr.readFull(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (fr *flatReader) readUint64() (uint64, error) {
	b, err := fr.readFull(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// cursor decodes the vector form out of a single contiguous buffer,
// returning zero-copy slices into it. Every returned payload slice is
// reheaded ([:n:n]) so appends by the caller cannot corrupt neighboring
// buffers sharing the same backing array.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.buf) {
		return nil, framingErrorf("cursor", "need %d bytes at offset %d, have %d", n, c.off, len(c.buf))
	}
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) boolean() (bool, error) {
	b, err := c.uint8()
	return b != 0, err
}

func (c *cursor) uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
