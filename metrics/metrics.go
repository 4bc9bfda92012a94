// Package metrics defines the prometheus metric types shared by the
// transport, backup stream, and message codec.
//
// When adding a new metric here, the values worth tracking are the same as
// anywhere else in this pipeline: things entering or leaving the system
// (messages, bytes, records), their success/error split, and the
// distribution of processing latency.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EncodeBytesTotal counts bytes written by EncodeFlat/EncodeVector, by
	// message type and wire form.
	EncodeBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_encode_bytes_total",
			Help: "Total bytes written by the message codec.",
		}, []string{"type", "form"})

	// DecodeErrorCount counts framing errors encountered while decoding,
	// by wire form.
	DecodeErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_decode_error_total",
			Help: "Total decode errors, by wire form.",
		}, []string{"form"})

	// PairingCacheSize tracks the number of requests currently awaiting a
	// paired response in a Router.
	PairingCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "galaxy_pairing_cache_size",
			Help: "Number of outstanding requests awaiting a paired response.",
		})

	// RoundTripLatencyHistogram tracks the time between sending a
	// REPLY_REQUIRED request and delivering its paired response (including
	// synthesized TIMEOUTs).
	RoundTripLatencyHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "galaxy_round_trip_latency_seconds",
			Help: "Request/response round-trip latency distribution (seconds).",
			Buckets: []float64{
				0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.032, 0.064,
				0.128, 0.256, 0.512, 1, 2, 4, 8,
			},
		}, []string{"type"})

	// TimeoutCount counts synthesized TIMEOUT responses, by the original
	// request's type.
	TimeoutCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "galaxy_timeout_total",
			Help: "Number of REPLY_REQUIRED requests that timed out unanswered.",
		}, []string{"type"})

	// BackupRecordsWritten counts records appended by a backupstream.Writer.
	BackupRecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_backup_records_written_total",
			Help: "Number of records appended to a backup log.",
		})

	// BackupRecordsRead counts records consumed by a backupstream.Reader.
	BackupRecordsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "galaxy_backup_records_read_total",
			Help: "Number of records read back from a backup log.",
		})
)

func init() {
	log.Println("Prometheus metrics in galaxy.metrics are registered.")
}
