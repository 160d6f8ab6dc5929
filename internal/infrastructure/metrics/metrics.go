// Package metrics owns the service's Prometheus registry.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/user"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "credhealth"

type Metrics struct {
	reg *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	transitions *prometheus.CounterVec
	subscribers prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Loan lifecycle triggers by outcome.",
		}, []string{"trigger", "result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_subscribers",
			Help:      "Live loan status subscribers.",
		}),
	}
	m.reg.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.transitions, m.subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Middleware records RPS, latency and in-flight requests. Paths are the route templates so
// loan ids do not blow up label cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			status := strconv.Itoa(c.Response().Status)
			m.httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
			m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
			return nil
		}
	}
}

// ObserveTransition counts one trigger attempt under its outcome.
func (m *Metrics) ObserveTransition(trigger string, err error) {
	m.transitions.WithLabelValues(trigger, Result(err)).Inc()
}

// SetSubscribers matches the relay's OnChange hook.
func (m *Metrics) SetSubscribers(n int) { m.subscribers.Set(float64(n)) }

// Result buckets err into a low-cardinality label.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, user.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, user.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, loan.ErrNotFound), errors.Is(err, hospital.ErrNotFound):
		return "not_found"
	case errors.Is(err, loan.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, loan.ErrInvalidStateTransition):
		return "invalid_state"
	case errors.Is(err, loan.ErrSettlementFailed):
		return "settlement_failed"
	default:
		return "error"
	}
}
