package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/soapd/pkg/soap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "soapd"

// Metrics holds the soapd collectors. A nil *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	faultsTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	httpResponses   *prometheus.CounterVec
	inFlight        prometheus.Gauge
}

var _ soap.Observer = (*Metrics)(nil)

// New registers the soapd collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of handled SOAP requests by outcome",
			},
			[]string{"outcome"},
		),
		faultsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Total number of SOAP faults returned by fault code",
			},
			[]string{"code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of SOAP request handling in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"outcome"},
		),
		httpResponses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_responses_total",
				Help:      "Total number of HTTP responses by status code",
			},
			[]string{"status"},
		),
		inFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Current number of SOAP requests being processed",
			},
		),
	}
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ObserveHandle records the outcome of one soap.Server Handle call.
func (m *Metrics) ObserveHandle(outcome soap.Outcome, faultCode string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(string(outcome)).Inc()
	m.requestDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
	if faultCode != "" {
		m.faultsTotal.WithLabelValues(faultCode).Inc()
	}
}

// ObserveResponse records the HTTP status written for a request.
func (m *Metrics) ObserveResponse(status int) {
	if m == nil {
		return
	}
	m.httpResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// TrackInFlight increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}
