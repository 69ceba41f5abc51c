package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krepo_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "krepo_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	authResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krepo_auth_resolutions_total",
			Help: "Credential resolutions by scheme and outcome.",
		},
		[]string{"scheme", "outcome"},
	)

	uploadedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "krepo_storage_uploaded_bytes_total",
		Help: "Bytes successfully written to storage.",
	})

	registerOnce sync.Once
)

// Init registers the collectors with the default registry. Calling it again is a no-op.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, authResolutionsTotal, uploadedBytesTotal)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records count and latency of every request, labelled by route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func ObserveAuth(scheme, outcome string) {
	authResolutionsTotal.WithLabelValues(scheme, outcome).Inc()
}

func AddUploadedBytes(n int64) {
	uploadedBytesTotal.Add(float64(n))
}
