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

	// 检索指标
	SearchesTotal        *prometheus.CounterVec // 按命中层级统计
	SearchResultCount    *prometheus.HistogramVec
	DuplicateChecksTotal prometheus.Counter
	DuplicatesFound      prometheus.Counter

	// 向量服务指标
	EmbeddingRequestsTotal   *prometheus.CounterVec
	EmbeddingRequestDuration prometheus.Histogram

	// 网关指标
	AuthDeniedTotal      *prometheus.CounterVec // 按拒绝原因统计
	RateLimitBlocksTotal prometheus.Counter
	UsageEventsPurged    prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodwatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "floodwatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodwatch_searches_total",
				Help: "Total number of report searches by resolved tier",
			},
			[]string{"tier"},
		),

		SearchResultCount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "floodwatch_search_result_count",
				Help:    "Number of reports returned per search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"tier"},
		),

		DuplicateChecksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "floodwatch_duplicate_checks_total",
				Help: "Total number of duplicate checks",
			},
		),

		DuplicatesFound: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "floodwatch_duplicates_found_total",
				Help: "Total number of duplicate candidates returned",
			},
		),

		EmbeddingRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodwatch_embedding_requests_total",
				Help: "Total number of embedding API requests",
			},
			[]string{"status"},
		),

		EmbeddingRequestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "floodwatch_embedding_request_duration_seconds",
				Help:    "Embedding API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		AuthDeniedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodwatch_auth_denied_total",
				Help: "Total number of gate denials by reason",
			},
			[]string{"reason"},
		),

		RateLimitBlocksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "floodwatch_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
		),

		UsageEventsPurged: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "floodwatch_usage_events_purged_total",
				Help: "Total number of usage audit events purged by retention",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "floodwatch_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "floodwatch_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// ObserveEmbeddingRequest 记录一次出站向量化调用及其耗时
func (m *Metrics) ObserveEmbeddingRequest(status string, elapsed time.Duration) {
	m.EmbeddingRequestsTotal.WithLabelValues(status).Inc()
	m.EmbeddingRequestDuration.Observe(elapsed.Seconds())
}

// HTTPHandler 返回 Prometheus 指标导出端点
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
