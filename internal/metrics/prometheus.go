package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the pipeline metrics on its own registry, so several
// recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	signals         *prometheus.CounterVec
	gatewayFailures prometheus.Counter
	parseFailures   prometheus.Counter
	filterOverrides *prometheus.CounterVec
	notifyFailures  prometheus.Counter
	rateLimited     prometheus.Counter
	latency         *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_gateway_signals_total",
				Help: "Signals returned, by action and producing stage",
			},
			[]string{"action", "source"},
		),
		gatewayFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "signal_gateway_model_failures_total",
			Help: "Model calls that failed or timed out",
		}),
		parseFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "signal_gateway_parse_failures_total",
			Help: "Model replies that could not be interpreted",
		}),
		filterOverrides: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_gateway_filter_overrides_total",
				Help: "Signals downgraded to hold by a guard rule",
			},
			[]string{"rule"},
		),
		notifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "signal_gateway_notify_failures_total",
			Help: "Alerts that could not be delivered",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "signal_gateway_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_gateway_analysis_duration_seconds",
				Help:    "Pipeline duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"source"},
		),
	}
}

func (r *Recorder) RecordSignal(action, source string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(action, source).Inc()
	r.latency.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (r *Recorder) RecordGatewayFailure() {
	if r == nil {
		return
	}
	r.gatewayFailures.Inc()
}

func (r *Recorder) RecordParseFailure() {
	if r == nil {
		return
	}
	r.parseFailures.Inc()
}

func (r *Recorder) RecordFilterOverride(rule string) {
	if r == nil {
		return
	}
	r.filterOverrides.WithLabelValues(rule).Inc()
}

func (r *Recorder) RecordNotifyFailure() {
	if r == nil {
		return
	}
	r.notifyFailures.Inc()
}

func (r *Recorder) RecordRateLimited() {
	if r == nil {
		return
	}
	r.rateLimited.Inc()
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
