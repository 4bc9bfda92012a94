// Package backupstream is the durable log for BACKUP_PACKET traffic: an
// append-only place to persist replicated state and read it back
// sequentially, accessed only through Writer and Reader.
package backupstream

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/imace/galaxy/message"
	"github.com/imace/galaxy/metrics"
)

// Writer appends flat-encoded messages to an underlying io.Writer, each
// record framed with a uvarint length prefix ahead of the flat bytes, the
// same record framing this corpus uses for streaming binary logs.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer appending to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append writes one length-prefixed record for m.
func (bw *Writer) Append(m message.Message) error {
	wire, err := encodeFlatBytes(m)
	if err != nil {
		return err
	}
	metrics.EncodeBytesTotal.WithLabelValues(m.Type().String(), "flat").Add(float64(len(wire)))
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(wire)))
	if _, err := bw.w.Write(lenBuf[:n]); err != nil {
		return err
	}
	if _, err := bw.w.Write(wire); err != nil {
		return err
	}
	metrics.BackupRecordsWritten.Inc()
	return nil
}

func encodeFlatBytes(m message.Message) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(m.Size())
	if _, err := message.EncodeFlat(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
