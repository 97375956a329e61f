package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics records document store activity.
//
// Operations are the user-facing actions (load, create_folder, delete,
// upload, rename, move, refresh). Batch outcomes are counted per item.
type StoreMetrics interface {
	// ObserveOperation records one completed action and its duration.
	ObserveOperation(operation string, duration time.Duration, err error)

	// RecordBatchItems records the per-item outcomes of a batch action.
	RecordBatchItems(operation string, ok, failed, skipped int)

	// SetDocuments reports the size of the loaded document set.
	SetDocuments(count int)

	// SetSelected reports the current selection size.
	SetSelected(count int)

	// RecordRejected counts actions refused because one of the same kind
	// was already running.
	RecordRejected(operation string)
}

type storeMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	batchItems        *prometheus.CounterVec
	rejectedTotal     *prometheus.CounterVec
	documents         prometheus.Gauge
	selected          prometheus.Gauge
}

// NewStoreMetrics creates Prometheus-backed store metrics, or a no-op
// implementation if metrics are disabled.
func NewStoreMetrics() StoreMetrics {
	return NewStoreMetricsWith(GetRegistry())
}

// NewStoreMetricsWith registers the store metrics on reg. A nil registry
// yields the no-op implementation.
func NewStoreMetricsWith(reg *prometheus.Registry) StoreMetrics {
	if reg == nil {
		return noopStoreMetrics{}
	}

	return &storeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmshelf_store_operations_total",
				Help: "Total number of document store actions by operation and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rmshelf_store_operation_duration_seconds",
				Help:    "Duration of document store actions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		batchItems: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmshelf_store_batch_items_total",
				Help: "Items processed by batch actions by outcome",
			},
			[]string{"operation", "outcome"},
		),
		rejectedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rmshelf_store_busy_rejections_total",
				Help: "Actions rejected because the same action was already running",
			},
			[]string{"operation"},
		),
		documents: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rmshelf_store_documents",
				Help: "Number of documents in the loaded library",
			},
		),
		selected: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "rmshelf_store_selected_documents",
				Help: "Number of currently selected documents",
			},
		),
	}
}

func (m *storeMetrics) ObserveOperation(operation string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *storeMetrics) RecordBatchItems(operation string, ok, failed, skipped int) {
	m.batchItems.WithLabelValues(operation, "ok").Add(float64(ok))
	m.batchItems.WithLabelValues(operation, "failed").Add(float64(failed))
	m.batchItems.WithLabelValues(operation, "skipped").Add(float64(skipped))
}

func (m *storeMetrics) SetDocuments(count int) {
	m.documents.Set(float64(count))
}

func (m *storeMetrics) SetSelected(count int) {
	m.selected.Set(float64(count))
}

func (m *storeMetrics) RecordRejected(operation string) {
	m.rejectedTotal.WithLabelValues(operation).Inc()
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopStoreMetrics) RecordBatchItems(string, int, int, int)        {}
func (noopStoreMetrics) SetDocuments(int)                              {}
func (noopStoreMetrics) SetSelected(int)                               {}
func (noopStoreMetrics) RecordRejected(string)                         {}
