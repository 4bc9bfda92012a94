// Command galaxy-dump converts a backupstream log into CSV for offline
// inspection, the same shape as this corpus's csvtool.
package main

import (
	"io"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/rtx"

	"github.com/imace/galaxy/backupstream"
	"github.com/imace/galaxy/message"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// backupRow is one contained BACKUP body flattened out of a BACKUP_PACKET,
// the unit gocsv.Marshal actually emits a row per.
type backupRow struct {
	PacketID    uint64 `csv:"packet_id"`
	Peer        int16  `csv:"peer"`
	Index       int    `csv:"index"`
	Line        uint64 `csv:"line"`
	Version     uint64 `csv:"version"`
	PayloadSize int    `csv:"payload_size"`
}

// readRows decodes every BACKUP_PACKET record in rdr into backupRows.
// Non-BACKUP_PACKET records (a log could in principle hold other variants)
// are skipped.
func readRows(rdr io.Reader) ([]*backupRow, error) {
	reader := backupstream.NewReader(rdr)
	var rows []*backupRow
	for {
		m, err := reader.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		packet, ok := m.(*message.BackupPacketMsg)
		if !ok {
			continue
		}
		for i, b := range packet.Backups {
			rows = append(rows, &backupRow{
				PacketID:    packet.ID,
				Peer:        int16(packet.Peer()),
				Index:       i,
				Line:        uint64(b.Line),
				Version:     uint64(b.Version),
				PayloadSize: len(b.Data.Bytes),
			})
		}
	}
}

func toCSV(rows []*backupRow, w io.Writer) error {
	return gocsv.Marshal(rows, w)
}

func main() {
	args := os.Args[1:]

	var source io.ReadCloser = os.Stdin
	var err error
	if len(args) == 1 {
		source, err = os.Open(args[0])
		rtx.Must(err, "Could not open file %q", args[0])
	} else if len(args) > 1 {
		log.Fatal("Too many command-line arguments.")
	}
	defer source.Close()

	rows, err := readRows(source)
	rtx.Must(err, "Could not read backup log")
	rtx.Must(toCSV(rows, os.Stdout), "Could not convert input to CSV")
}
