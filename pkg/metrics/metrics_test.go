package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusConfigurationError, StatusOf(engine.NewConfigurationError(errors.New("no key"))))
	assert.Equal(t, "rate-limit", StatusOf(errors.Wrap(engine.NewRemoteCallError(engine.CategoryRateLimit, "openai", errors.New("429")), "step")))
	assert.Equal(t, StatusError, StatusOf(errors.New("boom")))
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveInference("gpt-4", 200*time.Millisecond, nil)
	m.ObserveInference("gpt-4", time.Second, engine.NewRemoteCallError(engine.CategoryAuthentication, "openai", errors.New("401")))
	m.ObserveInvocation(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferences.WithLabelValues("gpt-4", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferences.WithLabelValues("gpt-4", "authentication")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invocations.WithLabelValues("ok")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatbot_inferences_total{model="gpt-4",status="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "chatbot_inference_duration_seconds_bucket")
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
