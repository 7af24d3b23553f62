package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 摄入指标
	EmailsIngested prometheus.Counter
	IngestFailures prometheus.Counter

	// 来源指标
	SourcesAutoCreated prometheus.Counter

	// 处理指标
	EmailsProcessed prometheus.Counter
	SpamBackfilled  prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailfoxes_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailfoxes_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		EmailsIngested: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_emails_ingested_total",
				Help: "Total number of inbound emails ingested",
			},
		),

		IngestFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_ingest_failures_total",
				Help: "Total number of failed ingest attempts",
			},
		),

		SourcesAutoCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_sources_auto_created_total",
				Help: "Total number of sources auto-created during ingestion",
			},
		),

		EmailsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_emails_processed_total",
				Help: "Total number of emails marked processed",
			},
		),

		SpamBackfilled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_spam_scores_backfilled_total",
				Help: "Total number of spam scores backfilled",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailfoxes_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailfoxes_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordError 记录错误指标
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic 指标
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
