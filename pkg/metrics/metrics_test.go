package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getmockd/soapd/pkg/soap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHandle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHandle(soap.OutcomeOK, "", 2*time.Millisecond)
	m.ObserveHandle(soap.OutcomeOK, "", time.Millisecond)
	m.ObserveHandle(soap.OutcomeFault, "Sender", time.Millisecond)
	m.ObserveHandle(soap.OutcomeRejected, "Sender", time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.requestsTotal.WithLabelValues("ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requestsTotal.WithLabelValues("fault")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.faultsTotal.WithLabelValues("Sender")), 0)
	assert.Equal(t, 3, testutil.CollectAndCount(m.requestDuration))
}

func TestObserveResponseAndInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.TrackInFlight()
	assert.InDelta(t, 1, testutil.ToFloat64(m.inFlight), 0)
	done()
	assert.InDelta(t, 0, testutil.ToFloat64(m.inFlight), 0)

	m.ObserveResponse(500)
	m.ObserveResponse(500)
	assert.InDelta(t, 2, testutil.ToFloat64(m.httpResponses.WithLabelValues("500")), 0)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHandle(soap.OutcomeError, "", time.Second)
		m.ObserveResponse(200)
		m.TrackInFlight()()
	})
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.ObserveHandle(soap.OutcomeFault, "Receiver", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `soapd_faults_total{code="Receiver"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
