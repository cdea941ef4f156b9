// Package prometheuscollector exposes the handler metrics in the Prometheus
// exposition format (https://prometheus.io/docs/instrumenting/exposition_formats/):
//
//	h := handler.NewHandler(…)
//	collector := prometheuscollector.New(h.Metrics)
//	prometheus.MustRegister(collector)
package prometheuscollector

import (
	"strconv"
	"sync/atomic"

	"github.com/filedepot/filedepot/pkg/handler"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotalDesc = prometheus.NewDesc(
		"filedepot_requests_total",
		"Total number of requests served per method.",
		[]string{"method"}, nil)
	errorsTotalDesc = prometheus.NewDesc(
		"filedepot_errors_total",
		"Total number of errors per status.",
		[]string{"status", "message"}, nil)
	bytesReceivedDesc = prometheus.NewDesc(
		"filedepot_bytes_received",
		"Number of bytes received in uploads and overrides.",
		nil, nil)
	bytesSentDesc = prometheus.NewDesc(
		"filedepot_bytes_sent",
		"Number of bytes sent in downloads.",
		nil, nil)
	filesCreatedDesc = prometheus.NewDesc(
		"filedepot_files_created",
		"Number of created files.",
		nil, nil)
	filesRenamedDesc = prometheus.NewDesc(
		"filedepot_files_renamed",
		"Number of renamed files.",
		nil, nil)
	filesOverriddenDesc = prometheus.NewDesc(
		"filedepot_files_overridden",
		"Number of overridden files.",
		nil, nil)
	filesDeletedDesc = prometheus.NewDesc(
		"filedepot_files_deleted",
		"Number of deleted files.",
		nil, nil)
)

type Collector struct {
	metrics handler.Metrics
}

// New creates a new collector which reads from the provided Metrics struct.
func New(metrics handler.Metrics) Collector {
	return Collector{
		metrics: metrics,
	}
}

func (_ Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- requestsTotalDesc
	descs <- errorsTotalDesc
	descs <- bytesReceivedDesc
	descs <- bytesSentDesc
	descs <- filesCreatedDesc
	descs <- filesRenamedDesc
	descs <- filesOverriddenDesc
	descs <- filesDeletedDesc
}

func (c Collector) Collect(metrics chan<- prometheus.Metric) {
	for method, valuePtr := range c.metrics.RequestsTotal {
		metrics <- prometheus.MustNewConstMetric(
			requestsTotalDesc,
			prometheus.CounterValue,
			float64(atomic.LoadUint64(valuePtr)),
			method,
		)
	}

	for serr, valuePtr := range c.metrics.ErrorsTotal.Load() {
		metrics <- prometheus.MustNewConstMetric(
			errorsTotalDesc,
			prometheus.CounterValue,
			float64(atomic.LoadUint64(valuePtr)),
			strconv.Itoa(serr.Code),
			serr.Msg,
		)
	}

	counters := map[*prometheus.Desc]*uint64{
		bytesReceivedDesc:   c.metrics.BytesReceived,
		bytesSentDesc:       c.metrics.BytesSent,
		filesCreatedDesc:    c.metrics.FilesCreated,
		filesRenamedDesc:    c.metrics.FilesRenamed,
		filesOverriddenDesc: c.metrics.FilesOverridden,
		filesDeletedDesc:    c.metrics.FilesDeleted,
	}
	for desc, valuePtr := range counters {
		metrics <- prometheus.MustNewConstMetric(
			desc,
			prometheus.CounterValue,
			float64(atomic.LoadUint64(valuePtr)),
		)
	}
}
