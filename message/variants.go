package message

// AckMsg is the transport-level ACK. It carries no fields beyond the common
// header and never flows up to the cache.
type AckMsg struct{ base }

func (m *AckMsg) Size1() int { return size1Common }
func (m *AckMsg) Size() int  { return m.Size1() }

func (m *AckMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *AckMsg) CloneDataBuffers() Message { return m.Clone() }

// LineMsg covers the shape shared by GET, GETX, DEL, INVACK, NOT_FOUND,
// MSGACK, and TIMEOUT: the common header plus a single line field.
type LineMsg struct {
	base
	Line Line
}

func (m *LineMsg) Size1() int { return size1Common + 8 }
func (m *LineMsg) Size() int  { return m.Size1() }

func (m *LineMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *LineMsg) CloneDataBuffers() Message { return m.Clone() }

// InvMsg is an INV: invalidate line, recording the owner the sender believed
// held it at send time so the recipient can forward correctly if ownership
// has since changed.
type InvMsg struct {
	base
	Line          Line
	PreviousOwner PeerNode
}

func (m *InvMsg) Size1() int { return size1Common + 8 + 2 }
func (m *InvMsg) Size() int  { return m.Size1() }

func (m *InvMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *InvMsg) CloneDataBuffers() Message { return m.Clone() }

// PutMsg covers PUT and BACKUP, which share an identical body: line,
// version, and one opaque payload buffer.
type PutMsg struct {
	base
	Line    Line
	Version Version
	Data    Buffer
}

func (m *PutMsg) Size1() int { return size1Common + 8 + 8 + 2 }
func (m *PutMsg) Size() int  { return m.Size1() + len(m.Data.Bytes) }

func (m *PutMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *PutMsg) CloneDataBuffers() Message {
	cp := *m
	cp.Data = m.Data.clone()
	return &cp
}

// PutxMsg is PUTX: line, version, a sharer list, and one opaque payload
// buffer.
type PutxMsg struct {
	base
	Line    Line
	Version Version
	Sharers []PeerNode
	Data    Buffer
}

func (m *PutxMsg) Size1() int {
	return size1Common + 8 + 8 + 2 + 2*len(m.Sharers) + 2
}
func (m *PutxMsg) Size() int { return m.Size1() + len(m.Data.Bytes) }

func (m *PutxMsg) Clone() Message {
	cp := *m
	cp.Sharers = append([]PeerNode(nil), m.Sharers...)
	return &cp
}

func (m *PutxMsg) CloneDataBuffers() Message {
	cp := *m
	cp.Sharers = append([]PeerNode(nil), m.Sharers...)
	cp.Data = m.Data.clone()
	return &cp
}

// ChngdOwnrMsg announces (or forwards a hint about) an ownership change.
// Certain distinguishes an authoritative update from the new owner itself
// from a forwarded, possibly-stale hint.
type ChngdOwnrMsg struct {
	base
	Line     Line
	Certain  bool
	NewOwner PeerNode
}

func (m *ChngdOwnrMsg) Size1() int { return size1Common + 8 + 1 + 2 }
func (m *ChngdOwnrMsg) Size() int  { return m.Size1() }

func (m *ChngdOwnrMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *ChngdOwnrMsg) CloneDataBuffers() Message { return m.Clone() }

// BackupackMsg acknowledges a BACKUP at the line/version granularity.
type BackupackMsg struct {
	base
	Line    Line
	Version Version
}

func (m *BackupackMsg) Size1() int { return size1Common + 8 + 8 }
func (m *BackupackMsg) Size() int  { return m.Size1() }

func (m *BackupackMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *BackupackMsg) CloneDataBuffers() Message { return m.Clone() }

// BackupPacketMsg batches count BACKUP bodies under one id for bulk
// replication to a backup node. Every contained backup shares the packet's
// destination peer: SetNode on the packet cascades to each one (invariant 5).
type BackupPacketMsg struct {
	base
	ID      uint64
	Backups []*PutMsg
}

func (m *BackupPacketMsg) Size1() int {
	// id:8 + count:4, plus for each contained backup: line:8 + version:8 +
	// length:2 (flat form colocates the length with each inlined body).
	n := size1Common + 8 + 4
	for range m.Backups {
		n += 8 + 8 + 2
	}
	return n
}

func (m *BackupPacketMsg) Size() int {
	n := m.Size1()
	for _, b := range m.Backups {
		n += len(b.Data.Bytes)
	}
	return n
}

func (m *BackupPacketMsg) Clone() Message {
	cp := *m
	cp.Backups = append([]*PutMsg(nil), m.Backups...)
	return &cp
}

func (m *BackupPacketMsg) CloneDataBuffers() Message {
	cp := *m
	cp.Backups = make([]*PutMsg, len(m.Backups))
	for i, b := range m.Backups {
		cp.Backups[i] = b.CloneDataBuffers().(*PutMsg)
	}
	return &cp
}

// SetNode overrides the promoted base.SetNode to also rewrite the peer of
// every contained BACKUP.
func (m *BackupPacketMsg) SetNode(peer PeerNode) error {
	if err := m.base.SetNode(peer); err != nil {
		return err
	}
	for _, b := range m.Backups {
		b.peer = peer
		b.flags = b.flags.with(FlagBroadcast, peer == NoPeer)
	}
	return nil
}

// setPeer overrides the promoted base.setPeer so AttachPeer also cascades
// to every contained BACKUP, mirroring SetNode's cascade.
func (m *BackupPacketMsg) setPeer(peer PeerNode) {
	m.base.setPeer(peer)
	for _, b := range m.Backups {
		b.peer = peer
	}
}

// BackupPacketAckMsg acknowledges receipt of a BACKUP_PACKET by id.
type BackupPacketAckMsg struct {
	base
	ID uint64
}

func (m *BackupPacketAckMsg) Size1() int { return size1Common + 8 }
func (m *BackupPacketAckMsg) Size() int  { return m.Size1() }

func (m *BackupPacketAckMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *BackupPacketAckMsg) CloneDataBuffers() Message { return m.Clone() }

// MsgMsg is an application-level MSG carrying inline (not buffer-owned)
// data. The data is length-prefixed in the wire header the same way as a
// payload buffer, but MSG has no payload buffers at all, so it is not
// subject to the Owned/Borrowed ownership contract.
type MsgMsg struct {
	base
	Line Line
	Data []byte
}

func (m *MsgMsg) Size1() int { return size1Common + 8 + 2 + len(m.Data) }
func (m *MsgMsg) Size() int  { return m.Size1() }

func (m *MsgMsg) Clone() Message {
	cp := *m
	return &cp
}

func (m *MsgMsg) CloneDataBuffers() Message { return m.Clone() }
