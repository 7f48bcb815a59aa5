package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

const namespace = "climate"

// RegistryStats reports the size of the loaded entity registry.
type RegistryStats func() (rooms, devices int)

// Metrics holds the skill's Prometheus collectors on a private registry.
// It implements climate.Observer.
type Metrics struct {
	reg *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  prometheus.Histogram
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
}

// New creates and registers the collectors. stats may be nil.
func New(stats RegistryStats) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Voice requests handled, by outcome.",
			},
			[]string{"outcome"},
		),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from receiving a request to rendering its reply.",
			Buckets:   prometheus.DefBuckets,
		}),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Device commands dispatched, by action and status.",
			},
			[]string{"action", "status"},
		),
		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Time until a device accepted, refused or timed out a command.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"action"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP API requests, by route, method and status.",
			},
			[]string{"route", "method", "status"},
		),
	}

	m.reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.dispatches,
		m.dispatchDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if stats != nil {
		m.reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_devices",
				Help:      "Devices in the loaded entity registry snapshot.",
			}, func() float64 {
				_, devices := stats()
				return float64(devices)
			}),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_rooms",
				Help:      "Rooms in the loaded entity registry snapshot.",
			}, func() float64 {
				rooms, _ := stats()
				return float64(rooms)
			}),
		)
	}

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// RequestHandled implements climate.Observer.
func (m *Metrics) RequestHandled(_ climate.Request, reply climate.Reply, elapsed time.Duration) {
	m.requests.WithLabelValues(reply.Outcome).Inc()
	m.requestDuration.Observe(elapsed.Seconds())
}

// CommandDispatched implements climate.Observer.
func (m *Metrics) CommandDispatched(result climate.DeviceResult) {
	action := "unknown"
	if result.Command != nil {
		action = string(result.Command.Action)
	}
	m.dispatches.WithLabelValues(action, string(result.Status)).Inc()
	m.dispatchDuration.WithLabelValues(action).Observe(result.Duration.Seconds())
}

// Middleware counts API requests by chi route pattern so path parameters
// do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
