package message

import (
	"bytes"
	"testing"
)

func flattenVector(bufs [][]byte) []byte {
	var out []byte
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// A PUT response with one payload buffer encodes to exactly the header
// buffer plus the payload buffer, with no extra copying.
func TestEncodeVector_PutResponse_TwoBuffers(t *testing.T) {
	req := mustGet(t, 5, Get, 0x100)
	req.SetID(42)

	data := bytes.Repeat([]byte{0x7A}, 1024)
	resp, err := NewPutResponse(req, 0x100, 7, data)
	if err != nil {
		t.Fatal(err)
	}

	bufs, err := EncodeVector(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(bufs) != 2 {
		t.Fatalf("got %d buffers, want 2", len(bufs))
	}
	header := bufs[0]
	if len(header) < 2 {
		t.Fatalf("header too short: %d bytes", len(header))
	}
	lengthField := header[len(header)-2:]
	if lengthField[0] != 0x04 || lengthField[1] != 0x00 {
		t.Fatalf("trailing header bytes = % x, want [04 00] (length 1024)", lengthField)
	}
	if !bytes.Equal(bufs[1], data) {
		t.Fatal("payload buffer does not match original data")
	}
	if resp.ID() != 42 {
		t.Fatalf("response messageId = %d, want 42 (copied from request)", resp.ID())
	}
	if !resp.Flags().Response() {
		t.Fatal("response should have RESPONSE flag set")
	}
}

func TestVectorRoundTrip_AllVariants(t *testing.T) {
	backups := []*PutMsg{
		must(NewBackupEntry(1, 10, bytes.Repeat([]byte{0x01}, 8))),
		must(NewBackupEntry(2, 20, bytes.Repeat([]byte{0x02}, 16))),
	}
	packet, err := NewBackupPacket(3, 55, backups)
	if err != nil {
		t.Fatal(err)
	}

	msgs := []Message{
		must(NewAck(1)),
		mustGet(t, 2, Getx, 9),
		must(NewInv(3, 10, 4)),
		must(NewPut(5, 11, 2, []byte("data"))),
		must(NewPutx(6, 12, 3, []PeerNode{1, 2}, []byte("px"))),
		must(NewChngdOwnr(7, 13, false, 8)),
		must(NewBackupAckFixture(t)),
		packet,
		must(NewBackupPacketAck(mustRequestWithID(t, 2), 55)),
		must(NewMsg(9, 14, []byte("greetings"))),
	}

	for _, m := range msgs {
		bufs, err := EncodeVector(m)
		if err != nil {
			t.Fatalf("%s: EncodeVector: %v", m.Type(), err)
		}
		flat := flattenVector(bufs)
		decoded, err := DecodeVector(flat)
		if err != nil {
			t.Fatalf("%s: DecodeVector: %v", m.Type(), err)
		}
		if decoded.Type() != m.Type() {
			t.Fatalf("type mismatch: got %s want %s", decoded.Type(), m.Type())
		}
		if decoded.ID() != m.ID() {
			t.Fatalf("%s: id mismatch", m.Type())
		}
	}
}

// The two wire forms are not interchangeable for a BACKUP_PACKET: the flat
// form interleaves each contained backup's length with its own line/version
// fields, while the vector form batches every length after all the
// line/version pairs. Decoding one form's bytes with the other decoder must
// not silently reproduce the original message.
func TestCrossFormDecode_BackupPacketMismatch(t *testing.T) {
	backups := []*PutMsg{
		must(NewBackupEntry(1, 10, bytes.Repeat([]byte{0x01}, 8))),
		must(NewBackupEntry(2, 20, bytes.Repeat([]byte{0x02}, 16))),
	}
	m, err := NewBackupPacket(1, 42, backups)
	if err != nil {
		t.Fatal(err)
	}
	bufs, err := EncodeVector(m)
	if err != nil {
		t.Fatal(err)
	}
	flat := flattenVector(bufs)

	decoded, err := DecodeFlat(bytes.NewReader(flat))
	if err == nil {
		if dp, ok := decoded.(*BackupPacketMsg); ok {
			matches := len(dp.Backups) == len(backups)
			for i := range dp.Backups {
				if matches && (dp.Backups[i].Line != backups[i].Line || !bytes.Equal(dp.Backups[i].Data.Bytes, backups[i].Data.Bytes)) {
					matches = false
				}
			}
			if matches {
				t.Fatal("flat-decoding vector-encoded BACKUP_PACKET bytes should not reproduce the original contents")
			}
		}
	}
}

func TestDecodeVector_BuffersAreBorrowedAndZeroCopy(t *testing.T) {
	m, err := NewPut(1, 5, 1, []byte("borrowed-data"))
	if err != nil {
		t.Fatal(err)
	}
	bufs, err := EncodeVector(m)
	if err != nil {
		t.Fatal(err)
	}
	flat := flattenVector(bufs)

	decoded, err := DecodeVector(flat)
	if err != nil {
		t.Fatal(err)
	}
	pm := decoded.(*PutMsg)
	if pm.Data.Owned != Borrowed {
		t.Fatalf("decoded vector payload should be Borrowed, got %v", pm.Data.Owned)
	}

	clone := pm.CloneDataBuffers().(*PutMsg)
	if clone.Data.Owned != Owned {
		t.Fatalf("CloneDataBuffers() result should be Owned, got %v", clone.Data.Owned)
	}
	clone.Data.Bytes[0] = 'X'
	if pm.Data.Bytes[0] == 'X' {
		t.Fatal("mutating the clone mutated the original buffer")
	}
}
