package service

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the
// submission pipeline and provides lightweight snapshots for the status
// endpoint.
type MetricsService struct {
	registry              *prometheus.Registry
	handler               http.Handler
	submissions           *prometheus.CounterVec
	verificationOutcomes  *prometheus.CounterVec
	verificationDuration  prometheus.Histogram
	queueDepth            prometheus.Gauge
	syncBatches           prometheus.Counter
	syncedRecords         prometheus.Counter
	remoteRequestDuration *prometheus.HistogramVec

	submissionCount uint64
	syncedTotal     uint64
	queueDepthValue int64
}

// NewMetricsService registers the pipeline collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_submissions_total",
		Help: "Attendance submissions by path taken and event type",
	}, []string{"path", "type"})

	verificationOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "face_verification_outcomes_total",
		Help: "Face verification outcomes",
	}, []string{"outcome"})

	verificationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "face_verification_duration_seconds",
		Help:    "Duration of face verification round trips",
		Buckets: prometheus.DefBuckets,
	})

	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offline_queue_depth",
		Help: "Current number of unsynced offline records",
	})

	syncBatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offline_sync_batches_total",
		Help: "Offline batch sync attempts that succeeded",
	})

	syncedRecords := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offline_synced_records_total",
		Help: "Total offline records accepted by the server",
	})

	remoteRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "remote_request_duration_seconds",
		Help:    "Duration of remote service requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(submissions, verificationOutcomes, verificationDuration,
		queueDepth, syncBatches, syncedRecords, remoteRequestDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		submissions:           submissions,
		verificationOutcomes:  verificationOutcomes,
		verificationDuration:  verificationDuration,
		queueDepth:            queueDepth,
		syncBatches:           syncBatches,
		syncedRecords:         syncedRecords,
		remoteRequestDuration: remoteRequestDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveSubmission counts one attendance submission. path is "online" or
// "offline".
func (m *MetricsService) ObserveSubmission(path string, eventType models.EventType) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(path, string(eventType)).Inc()
	atomic.AddUint64(&m.submissionCount, 1)
}

// ObserveVerification records a verification outcome and its duration.
func (m *MetricsService) ObserveVerification(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.verificationOutcomes.WithLabelValues(outcome).Inc()
	m.verificationDuration.Observe(duration.Seconds())
}

// SetQueueDepth publishes the current offline backlog depth.
func (m *MetricsService) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
	atomic.StoreInt64(&m.queueDepthValue, int64(depth))
}

// ObserveSync records one successful batch sync and how many records the
// server accepted.
func (m *MetricsService) ObserveSync(syncedCount int) {
	if m == nil {
		return
	}
	m.syncBatches.Inc()
	m.syncedRecords.Add(float64(syncedCount))
	atomic.AddUint64(&m.syncedTotal, uint64(syncedCount))
}

// ObserveRemoteRequest implements the remote client's Observer.
func (m *MetricsService) ObserveRemoteRequest(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// Snapshot returns aggregate counters for the status endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	return models.MetricsSnapshot{
		Submissions:   atomic.LoadUint64(&m.submissionCount),
		SyncedRecords: atomic.LoadUint64(&m.syncedTotal),
		QueueDepth:    atomic.LoadInt64(&m.queueDepthValue),
	}
}
