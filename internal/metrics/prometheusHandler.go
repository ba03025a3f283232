package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countTasksInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_tasks_in_queue",
	Help: "Number of parse tasks waiting for a worker",
})

var dispatcherSignalCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "filebook_uploads_total",
	Help: "Uploads labelled by outcome",
}, []string{"outcome"})

var chunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "filebook_chunks_total",
	Help: "Chunks seen by ingestion labelled by embedded or failed",
}, []string{"result"})

var quotaRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "filebook_quota_rejections_total",
	Help: "Questions rejected by the quota governor labelled by reason",
}, []string{"reason"})

var turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "filebook_turns_total",
	Help: "Answered questions labelled by model and the step they ended on",
}, []string{"model", "step"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streamed answers working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementTasksInQueue() {
	countTasksInQueue.Inc()
}

func DecrementTasksInQueue() {
	countTasksInQueue.Dec()
}

func IncrementDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func IncrementUploads(outcome string) {
	uploadsTotal.WithLabelValues(outcome).Inc()
}

func AddChunks(embedded, failed int) {
	chunksTotal.WithLabelValues("embedded").Add(float64(embedded))
	chunksTotal.WithLabelValues("failed").Add(float64(failed))
}

func IncrementQuotaRejection(reason string) {
	quotaRejections.WithLabelValues(reason).Inc()
}

func IncrementTurns(model, step string) {
	turnsTotal.WithLabelValues(model, step).Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent answering or ingesting.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"operation", "status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureRequestMetrics(operation, status string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(operation, status).Observe(timeElapsed.Seconds())
}
