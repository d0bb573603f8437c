package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelService = "service"
	labelMethod  = "method"
	labelPath    = "path"
	labelStatus  = "status"
	labelBackend = "backend"
	labelOp      = "op"
	labelResult  = "result"

	defaultStatusCode = http.StatusOK
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec

	// StorageOps counts key-value operations by backend and outcome.
	StorageOps *prometheus.CounterVec
	// CatalogItems is the size of the currently loaded catalog.
	CatalogItems prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelService, labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelService, labelMethod, labelPath},
		),
		StorageOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kv_operations_total",
				Help: "Key-value store operations",
			},
			[]string{labelBackend, labelOp, labelResult},
		),
		CatalogItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_items",
				Help: "Items in the loaded catalog",
			},
		),
	}

	reg.MustRegister(m.Requests, m.Latency, m.StorageOps, m.CatalogItems)
	return m
}

// ObserveStorage records one key-value operation. Safe on a nil receiver.
func (m *Metrics) ObserveStorage(backend, op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StorageOps.WithLabelValues(backend, op, result).Inc()
}

// SetCatalogSize updates the catalog gauge. Safe on a nil receiver.
func (m *Metrics) SetCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogItems.Set(float64(n))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware(service string, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(service, r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(service, r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}
