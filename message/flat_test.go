package message

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-test/deep"
)

func mustGet(t *testing.T, peer PeerNode, typ Type, line Line) *LineMsg {
	t.Helper()
	m, err := NewGet(peer, typ, line)
	if err != nil {
		t.Fatalf("NewGet: %v", err)
	}
	return m
}

// GET encodes to an exact byte sequence.
func TestEncodeFlat_GetByteExact(t *testing.T) {
	m := mustGet(t, 5, Get, 0x100)
	m.SetID(42)

	var buf bytes.Buffer
	n, err := EncodeFlat(&buf, m)
	if err != nil {
		t.Fatalf("EncodeFlat: %v", err)
	}
	if n != m.Size() {
		t.Fatalf("wrote %d bytes, want Size() %d", n, m.Size())
	}

	want := make([]byte, 0, n)
	want = append(want, byte(Get))
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], 42)
	want = append(want, idBytes[:]...)
	want = append(want, byte(m.Flags()))
	var lineBytes [8]byte
	binary.BigEndian.PutUint64(lineBytes[:], 0x100)
	want = append(want, lineBytes[:]...)

	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}

func TestFlatRoundTrip_AllVariants(t *testing.T) {
	req, err := NewGet(5, Get, 0x100)
	if err != nil {
		t.Fatal(err)
	}
	req.SetID(1)

	backups := []*PutMsg{
		must(NewBackupEntry(10, 1, []byte("aaaaaaaaaaaaaaaa"))),
		must(NewBackupEntry(11, 2, bytes.Repeat([]byte("b"), 32))),
		must(NewBackupEntry(12, 3, bytes.Repeat([]byte("c"), 64))),
	}
	packet, err := NewBackupPacket(7, 99, backups)
	if err != nil {
		t.Fatal(err)
	}
	packet.SetID(2)

	msgs := []Message{
		must(NewAck(3)),
		req,
		must(NewInv(4, 55, 9)),
		must(NewPut(6, 77, 3, []byte("payload"))),
		must(NewPutx(8, 80, 4, []PeerNode{1, 2, 3}, []byte("px"))),
		must(NewChngdOwnr(2, 81, true, 6)),
		must(NewBackupAckFixture(t)),
		packet,
		must(NewBackupPacketAck(mustRequestWithID(t, 2), 99)),
		must(NewMsg(1, 82, []byte("hello"))),
	}

	for _, m := range msgs {
		var buf bytes.Buffer
		n, err := EncodeFlat(&buf, m)
		if err != nil {
			t.Fatalf("%s: EncodeFlat: %v", m.Type(), err)
		}
		if n != m.Size() {
			t.Fatalf("%s: wrote %d, want Size() %d", m.Type(), n, m.Size())
		}

		decoded, err := DecodeFlat(&buf)
		if err != nil {
			t.Fatalf("%s: DecodeFlat: %v", m.Type(), err)
		}
		if decoded.Direction() != Incoming {
			t.Fatalf("%s: decoded message should be Incoming", m.Type())
		}
		if decoded.Type() != m.Type() {
			t.Fatalf("type mismatch: got %s want %s", decoded.Type(), m.Type())
		}
		if decoded.ID() != m.ID() {
			t.Fatalf("%s: id mismatch: got %d want %d", m.Type(), decoded.ID(), m.ID())
		}
		if decoded.Flags() != m.Flags() {
			t.Fatalf("%s: flags mismatch: got %v want %v", m.Type(), decoded.Flags(), m.Flags())
		}
	}
}

// Round-trip plus peer cascade into every contained BACKUP.
func TestBackupPacket_RoundTripAndPeerCascade(t *testing.T) {
	backups := []*PutMsg{
		must(NewBackupEntry(1, 10, bytes.Repeat([]byte{0xAA}, 16))),
		must(NewBackupEntry(2, 20, bytes.Repeat([]byte{0xBB}, 32))),
		must(NewBackupEntry(3, 30, bytes.Repeat([]byte{0xCC}, 64))),
	}
	packet, err := NewBackupPacket(7, 99, backups)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := EncodeFlat(&buf, packet); err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeFlat(&buf)
	if err != nil {
		t.Fatal(err)
	}
	dp, ok := decoded.(*BackupPacketMsg)
	if !ok {
		t.Fatalf("decoded type %T, want *BackupPacketMsg", decoded)
	}
	if len(dp.Backups) != 3 {
		t.Fatalf("got %d backups, want 3", len(dp.Backups))
	}
	for i, b := range dp.Backups {
		want := backups[i]
		if b.Line != want.Line || b.Version != want.Version {
			t.Fatalf("backup %d: got line=%d version=%d, want line=%d version=%d", i, b.Line, b.Version, want.Line, want.Version)
		}
		if diff := deep.Equal(b.Data.Bytes, want.Data.Bytes); diff != nil {
			t.Fatalf("backup %d payload mismatch: %v", i, diff)
		}
	}

	if err := packet.SetNode(7); err != nil {
		t.Fatal(err)
	}
	for i, b := range packet.Backups {
		if b.Peer() != 7 {
			t.Fatalf("backup %d: peer %d, want 7 after packet SetNode cascade", i, b.Peer())
		}
	}
}

// Too many sharers is rejected at construction, not at encode time.
func TestNewPutx_TooManySharers_ConstructionError(t *testing.T) {
	sharers := make([]PeerNode, 70000)
	_, err := NewPutx(1, 1, 1, sharers, nil)
	if err == nil {
		t.Fatal("expected ConstructionError, got nil")
	}
	var ce *ConstructionError
	if !asConstructionError(err, &ce) {
		t.Fatalf("got %T, want *ConstructionError", err)
	}
}

// An unrecognized tag byte fails decode with a FramingError.
func TestDecodeFlat_UnknownTag_FramingError(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(99)
	_, err := DecodeFlat(&buf)
	if err == nil {
		t.Fatal("expected FramingError, got nil")
	}
	var fe *FramingError
	if !asFramingError(err, &fe) {
		t.Fatalf("got %T, want *FramingError", err)
	}
}

func TestDecodeFlat_TruncatedInput_FramingError(t *testing.T) {
	m := mustGet(t, 1, Get, 7)
	var buf bytes.Buffer
	if _, err := EncodeFlat(&buf, m); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:5])
	_, err := DecodeFlat(truncated)
	if err == nil {
		t.Fatal("expected FramingError for truncated input")
	}
	var fe *FramingError
	if !asFramingError(err, &fe) {
		t.Fatalf("got %T, want *FramingError", err)
	}
}

func must[T Message](m T, err error) T {
	if err != nil {
		panic(err)
	}
	return m
}

func NewBackupAckFixture(t *testing.T) (*BackupackMsg, error) {
	t.Helper()
	req, err := NewBackup(4, 60, 2, []byte("x"))
	if err != nil {
		return nil, err
	}
	req.SetID(5)
	return NewBackupAck(req, 60, 2)
}

func mustRequestWithID(t *testing.T, id MessageID) Message {
	t.Helper()
	req, err := NewBroadcastBackupPacket(99, nil)
	if err != nil {
		t.Fatal(err)
	}
	req.SetID(id)
	return req
}

func asConstructionError(err error, target **ConstructionError) bool {
	ce, ok := err.(*ConstructionError)
	if ok {
		*target = ce
	}
	return ok
}

func asFramingError(err error, target **FramingError) bool {
	fe, ok := err.(*FramingError)
	if ok {
		*target = fe
	}
	return ok
}
