package metrics

import (
	"net/http"
	"time"

	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK                 = "ok"
	StatusConfigurationError = "configuration-error"
	StatusError              = "error"
)

// Metrics groups the prometheus collectors of the chatbot.
type Metrics struct {
	inferences        *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	invocations       *prometheus.CounterVec
	gatherer          prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		inferences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbot_inferences_total",
			Help: "Completion requests sent, by model and outcome",
		}, []string{"model", "status"}),
		inferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatbot_inference_duration_seconds",
			Help:    "Latency of completion requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"model"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chatbot_invocations_total",
			Help: "Graph invocations, by outcome",
		}, []string{"status"}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.inferences, m.inferenceDuration, m.invocations} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "could not register collector")
		}
	}
	return m, nil
}

// StatusOf turns an error into a metrics label: "ok", "configuration-error",
// the remote call category, or "error".
func StatusOf(err error) string {
	if err == nil {
		return StatusOK
	}
	if errors.Is(err, engine.ErrConfiguration) {
		return StatusConfigurationError
	}
	if category, ok := engine.CategoryOf(err); ok {
		return string(category)
	}
	return StatusError
}

func (m *Metrics) ObserveInference(model string, d time.Duration, err error) {
	m.inferences.WithLabelValues(model, StatusOf(err)).Inc()
	m.inferenceDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (m *Metrics) ObserveInvocation(err error) {
	m.invocations.WithLabelValues(StatusOf(err)).Inc()
}

// InferenceCounter returns the inference counter of model and status.
func (m *Metrics) InferenceCounter(model, status string) (prometheus.Counter, error) {
	return m.inferences.GetMetricWithLabelValues(model, status)
}

func (m *Metrics) InvocationCounter(status string) (prometheus.Counter, error) {
	return m.invocations.GetMetricWithLabelValues(status)
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
