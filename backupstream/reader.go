package backupstream

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/imace/galaxy/message"
	"github.com/imace/galaxy/metrics"
)

// Reader sequentially decodes records written by a Writer, following the
// ArchiveReader.Next() convention used throughout this corpus's archival
// readers: one record in, one message out, io.EOF at end of stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r for sequential record decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next decodes and returns the next record, or io.EOF once the stream is
// exhausted cleanly between records.
func (br *Reader) Next() (message.Message, error) {
	length, err := binary.ReadUvarint(br.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, err
	}
	lr := io.LimitReader(br.r, int64(length))
	m, err := message.DecodeFlat(lr)
	if err != nil {
		metrics.DecodeErrorCount.WithLabelValues("flat").Inc()
		return nil, err
	}
	metrics.BackupRecordsRead.Inc()
	return m, nil
}
