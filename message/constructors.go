package message

// The functions in this file are the only supported way to build a
// Message: the three construction patterns — unicast request, broadcast
// request, and response — each set the flag bits appropriate to their
// shape, so a Message value can never be built in a shape none of the
// decoders would recognize.

func newUnicastRequestBase(typ Type, peer PeerNode) base {
	flags := Flags(0).
		with(FlagReplyRequired, typ.requiresResponseByDefault()).
		with(FlagBroadcast, peer == NoPeer)
	return base{typ: typ, id: NoMessageID, flags: flags, peer: peer, dir: Outgoing}
}

func newBroadcastRequestBase(typ Type) base {
	// peer is transient and never serialized, so FlagBroadcast is the only
	// wire-visible signal that this message targets every node; it must be
	// set here, not left for the (non-serialized) peer field to imply.
	flags := Flags(0).
		with(FlagReplyRequired, typ.requiresResponseByDefault()).
		with(FlagBroadcast, true)
	return base{typ: typ, id: NoMessageID, flags: flags, peer: NoPeer, dir: Outgoing}
}

func newResponseBase(requestTo Message, typ Type) (base, error) {
	if requestTo == nil {
		return base{}, constructionErrorf("requestTo", "response constructor requires a non-nil request")
	}
	if requestTo.Flags().Response() {
		return base{}, constructionErrorf("requestTo", "cannot build a response to a response")
	}
	if requestTo.ID() < 0 {
		return base{}, constructionErrorf("requestTo", "cannot build a response to a request with unassigned messageId")
	}
	return base{
		typ:   typ,
		id:    requestTo.ID(),
		flags: FlagResponse,
		peer:  requestTo.Peer(),
		dir:   Outgoing,
	}, nil
}

func checkPayloadLen(field string, n int) error {
	if n > MaxPayloadLen {
		return constructionErrorf(field, "length %d exceeds the %d-byte wire maximum", n, MaxPayloadLen)
	}
	return nil
}

// lineOf reports the line carried by m, for subtypes that carry one.
func lineOf(m Message) (Line, bool) {
	switch v := m.(type) {
	case *LineMsg:
		return v.Line, true
	case *InvMsg:
		return v.Line, true
	case *PutMsg:
		return v.Line, true
	case *PutxMsg:
		return v.Line, true
	case *ChngdOwnrMsg:
		return v.Line, true
	case *BackupackMsg:
		return v.Line, true
	case *MsgMsg:
		return v.Line, true
	}
	return NoLine, false
}

func assertLineMatches(requestTo Message, line Line) error {
	if l, ok := lineOf(requestTo); ok && l != line {
		return constructionErrorf("line", "response line %d does not match request line %d", line, l)
	}
	return nil
}

// --- GET / GETX -------------------------------------------------------

// NewGet builds a unicast GET or GETX request. typ must be Get or Getx.
func NewGet(peer PeerNode, typ Type, line Line) (*LineMsg, error) {
	if typ != Get && typ != Getx {
		return nil, constructionErrorf("typ", "GET constructor requires Get or Getx, got %s", typ)
	}
	return &LineMsg{base: newUnicastRequestBase(typ, peer), Line: line}, nil
}

// NewBroadcastGet builds a broadcast GET or GETX request.
func NewBroadcastGet(typ Type, line Line) (*LineMsg, error) {
	if typ != Get && typ != Getx {
		return nil, constructionErrorf("typ", "GET constructor requires Get or Getx, got %s", typ)
	}
	return &LineMsg{base: newBroadcastRequestBase(typ), Line: line}, nil
}

// --- DEL ----------------------------------------------------------------

// NewDel builds a unicast DEL request, dropping line from the peer's cache.
func NewDel(peer PeerNode, line Line) (*LineMsg, error) {
	return &LineMsg{base: newUnicastRequestBase(Del, peer), Line: line}, nil
}

// --- INV ------------------------------------------------------------------

// NewInv builds a unicast INV request.
func NewInv(peer PeerNode, line Line, previousOwner PeerNode) (*InvMsg, error) {
	return &InvMsg{base: newUnicastRequestBase(Inv, peer), Line: line, PreviousOwner: previousOwner}, nil
}

// NewBroadcastInv builds a broadcast INV request.
func NewBroadcastInv(line Line, previousOwner PeerNode) (*InvMsg, error) {
	return &InvMsg{base: newBroadcastRequestBase(Inv), Line: line, PreviousOwner: previousOwner}, nil
}

// --- PUT / BACKUP -----------------------------------------------------------

// NewPut builds a unicast PUT request carrying data as the fresh (Owned)
// payload buffer.
func NewPut(peer PeerNode, line Line, version Version, data []byte) (*PutMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &PutMsg{
		base:    newUnicastRequestBase(Put, peer),
		Line:    line,
		Version: version,
		Data:    newOutgoingBuffer(data),
	}, nil
}

// NewPutResponse builds a PUT sent in response to a GET/GETX request.
func NewPutResponse(requestTo Message, line Line, version Version, data []byte) (*PutMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	if err := assertLineMatches(requestTo, line); err != nil {
		return nil, err
	}
	b, err := newResponseBase(requestTo, Put)
	if err != nil {
		return nil, err
	}
	return &PutMsg{base: b, Line: line, Version: version, Data: newOutgoingBuffer(data)}, nil
}

// NewBackup builds a unicast BACKUP request: wire-identical to PUT, tagged
// Backup.
func NewBackup(peer PeerNode, line Line, version Version, data []byte) (*PutMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &PutMsg{
		base:    newUnicastRequestBase(Backup, peer),
		Line:    line,
		Version: version,
		Data:    newOutgoingBuffer(data),
	}, nil
}

// NewBackupEntry builds a BACKUP body meant to be inlined into a
// BACKUP_PACKET via NewBackupPacket, which assigns its destination peer.
func NewBackupEntry(line Line, version Version, data []byte) (*PutMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &PutMsg{
		base:    base{typ: Backup, id: NoMessageID, peer: NoPeer, dir: Outgoing},
		Line:    line,
		Version: version,
		Data:    newOutgoingBuffer(data),
	}, nil
}

// --- PUTX -------------------------------------------------------------------

// NewPutx builds a unicast PUTX request.
func NewPutx(peer PeerNode, line Line, version Version, sharers []PeerNode, data []byte) (*PutxMsg, error) {
	if err := checkPayloadLen("sharers", len(sharers)); err != nil {
		return nil, err
	}
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &PutxMsg{
		base:    newUnicastRequestBase(Putx, peer),
		Line:    line,
		Version: version,
		Sharers: append([]PeerNode(nil), sharers...),
		Data:    newOutgoingBuffer(data),
	}, nil
}

// --- CHNGD_OWNR ---------------------------------------------------------

// NewChngdOwnr builds a unicast ownership-change notification.
func NewChngdOwnr(peer PeerNode, line Line, certain bool, newOwner PeerNode) (*ChngdOwnrMsg, error) {
	return &ChngdOwnrMsg{
		base:     newUnicastRequestBase(ChngdOwnr, peer),
		Line:     line,
		Certain:  certain,
		NewOwner: newOwner,
	}, nil
}

// NewBroadcastChngdOwnr builds a broadcast ownership-change notification.
func NewBroadcastChngdOwnr(line Line, certain bool, newOwner PeerNode) (*ChngdOwnrMsg, error) {
	return &ChngdOwnrMsg{
		base:     newBroadcastRequestBase(ChngdOwnr),
		Line:     line,
		Certain:  certain,
		NewOwner: newOwner,
	}, nil
}

// --- BACKUPACK ------------------------------------------------------------

// NewBackupAck builds a BACKUPACK in response to a BACKUP.
func NewBackupAck(requestTo Message, line Line, version Version) (*BackupackMsg, error) {
	if err := assertLineMatches(requestTo, line); err != nil {
		return nil, err
	}
	b, err := newResponseBase(requestTo, Backupack)
	if err != nil {
		return nil, err
	}
	return &BackupackMsg{base: b, Line: line, Version: version}, nil
}

// --- BACKUP_PACKET / BACKUP_PACKETACK ---------------------------------------

func validateBackups(backups []*PutMsg) error {
	for i, b := range backups {
		if b.Type() != Backup {
			return constructionErrorf("backups", "entry %d has type %s, want BACKUP", i, b.Type())
		}
	}
	return nil
}

// NewBackupPacket builds a unicast BACKUP_PACKET bundling backups under id.
// It assigns the packet's peer to every contained backup.
func NewBackupPacket(peer PeerNode, id uint64, backups []*PutMsg) (*BackupPacketMsg, error) {
	if err := validateBackups(backups); err != nil {
		return nil, err
	}
	m := &BackupPacketMsg{base: newUnicastRequestBase(BackupPacket, peer), ID: id, Backups: backups}
	for _, b := range backups {
		b.peer = peer
		b.flags = b.flags.with(FlagBroadcast, peer == NoPeer)
	}
	return m, nil
}

// NewBroadcastBackupPacket builds a broadcast BACKUP_PACKET.
func NewBroadcastBackupPacket(id uint64, backups []*PutMsg) (*BackupPacketMsg, error) {
	if err := validateBackups(backups); err != nil {
		return nil, err
	}
	m := &BackupPacketMsg{base: newBroadcastRequestBase(BackupPacket), ID: id, Backups: backups}
	for _, b := range backups {
		b.peer = NoPeer
		b.flags = b.flags.with(FlagBroadcast, true)
	}
	return m, nil
}

// NewBackupPacketAck builds a BACKUP_PACKETACK in response to a BACKUP_PACKET.
func NewBackupPacketAck(requestTo Message, id uint64) (*BackupPacketAckMsg, error) {
	b, err := newResponseBase(requestTo, BackupPacketack)
	if err != nil {
		return nil, err
	}
	return &BackupPacketAckMsg{base: b, ID: id}, nil
}

// --- MSG / MSGACK ------------------------------------------------------

// NewMsg builds a unicast MSG request carrying inline data.
func NewMsg(peer PeerNode, line Line, data []byte) (*MsgMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &MsgMsg{base: newUnicastRequestBase(Msg, peer), Line: line, Data: append([]byte(nil), data...)}, nil
}

// NewBroadcastMsg builds a broadcast MSG request carrying inline data.
func NewBroadcastMsg(line Line, data []byte) (*MsgMsg, error) {
	if err := checkPayloadLen("data", len(data)); err != nil {
		return nil, err
	}
	return &MsgMsg{base: newBroadcastRequestBase(Msg), Line: line, Data: append([]byte(nil), data...)}, nil
}

// NewMsgAck builds a MSGACK in response to a MSG.
func NewMsgAck(requestTo Message, line Line) (*LineMsg, error) {
	if err := assertLineMatches(requestTo, line); err != nil {
		return nil, err
	}
	b, err := newResponseBase(requestTo, Msgack)
	if err != nil {
		return nil, err
	}
	return &LineMsg{base: b, Line: line}, nil
}

// --- INVACK / NOT_FOUND / TIMEOUT ---------------------------------------

// NewInvAck builds an INVACK in response to an INV.
func NewInvAck(requestTo Message, line Line) (*LineMsg, error) {
	if err := assertLineMatches(requestTo, line); err != nil {
		return nil, err
	}
	b, err := newResponseBase(requestTo, Invack)
	if err != nil {
		return nil, err
	}
	return &LineMsg{base: b, Line: line}, nil
}

// NewNotFound builds a NOT_FOUND in response to a GET/GETX for an absent line.
func NewNotFound(requestTo Message, line Line) (*LineMsg, error) {
	if err := assertLineMatches(requestTo, line); err != nil {
		return nil, err
	}
	b, err := newResponseBase(requestTo, NotFound)
	if err != nil {
		return nil, err
	}
	return &LineMsg{base: b, Line: line}, nil
}

// NewTimeout builds the synthetic TIMEOUT response the transport generates
// to wake up a waiter whose REPLY_REQUIRED request expired. The line, if the
// request carried one, is copied through for the waiter's convenience.
func NewTimeout(requestTo Message) (*LineMsg, error) {
	b, err := newResponseBase(requestTo, Timeout)
	if err != nil {
		return nil, err
	}
	line, _ := lineOf(requestTo)
	return &LineMsg{base: b, Line: line}, nil
}

// --- ACK ------------------------------------------------------------------

// NewAck builds a fire-and-forget, transport-level ACK addressed to peer. It
// never carries REPLY_REQUIRED and never flows up to the cache.
func NewAck(peer PeerNode) (*AckMsg, error) {
	b := newUnicastRequestBase(Ack, peer)
	b.flags = b.flags.with(FlagReplyRequired, false)
	return &AckMsg{base: b}, nil
}

// NewAckResponse builds an ACK in response to requestTo. ACKs are a
// transport-layer acknowledgement and never surface to the cache.
func NewAckResponse(requestTo Message) (*AckMsg, error) {
	b, err := newResponseBase(requestTo, Ack)
	if err != nil {
		return nil, err
	}
	return &AckMsg{base: b}, nil
}
