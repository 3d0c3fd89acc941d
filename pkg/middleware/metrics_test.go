package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findMetric collects c and returns the series carrying all of labels, or
// nil when none does.
func findMetric(c prometheus.Collector, labels map[string]string) *dto.Metric {
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	for m := range ch {
		d := &dto.Metric{}
		if m.Write(d) != nil {
			continue
		}
		have := make(map[string]string, len(d.GetLabel()))
		for _, lp := range d.GetLabel() {
			have[lp.GetName()] = lp.GetValue()
		}
		matched := true
		for k, v := range labels {
			if have[k] != v {
				matched = false
				break
			}
		}
		if matched {
			return d
		}
	}
	return nil
}

// meteredRouter mounts the search routes behind PrometheusMetrics for
// service. Every handler answers with status.
func meteredRouter(service string, status int, inside func()) *chi.Mux {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics(service))
	h := func(w http.ResponseWriter, _ *http.Request) {
		if inside != nil {
			inside()
		}
		if status != 0 {
			w.WriteHeader(status)
		}
		_, _ = w.Write([]byte(`{}`))
	}
	r.Get("/api/v1/search", h)
	r.Get("/api/v1/search/suggest", h)
	r.Delete("/api/v1/search/{id}", h)
	return r
}

func TestPrometheusMetrics_CountsByRoute(t *testing.T) {
	r := meteredRouter("count-svc", http.StatusOK, nil)

	for _, q := range []string{"ruby", "sapphire", "opal"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search?q="+q, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search/suggest", nil))

	search := findMetric(httpRequestsTotal, map[string]string{
		"service": "count-svc", "method": "GET", "route": "/api/v1/search", "status": "200",
	})
	require.NotNil(t, search)
	assert.Equal(t, float64(3), search.GetCounter().GetValue())

	suggest := findMetric(httpRequestsTotal, map[string]string{
		"service": "count-svc", "route": "/api/v1/search/suggest",
	})
	require.NotNil(t, suggest)
	assert.Equal(t, float64(1), suggest.GetCounter().GetValue())

	hist := findMetric(httpRequestDuration, map[string]string{
		"service": "count-svc", "route": "/api/v1/search", "status": "200",
	})
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.GetHistogram().GetSampleCount())
}

func TestPrometheusMetrics_Status(t *testing.T) {
	tests := []struct {
		service string
		status  int
		want    string
	}{
		{"status-implicit", 0, "200"},
		{"status-bad-request", http.StatusBadRequest, "400"},
		{"status-unavailable", http.StatusServiceUnavailable, "503"},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			rec := httptest.NewRecorder()
			meteredRouter(tt.service, tt.status, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

			m := findMetric(httpRequestsTotal, map[string]string{"service": tt.service, "status": tt.want})
			require.NotNil(t, m)
			assert.Equal(t, float64(1), m.GetCounter().GetValue())
		})
	}
}

func TestPrometheusMetrics_PatternKeepsCardinalityLow(t *testing.T) {
	r := meteredRouter("pattern-svc", http.StatusOK, nil)

	for _, id := range []string{"a1", "b2", "c3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/search/"+id, nil))
	}

	m := findMetric(httpRequestsTotal, map[string]string{
		"service": "pattern-svc", "method": "DELETE", "route": "/api/v1/search/{id}",
	})
	require.NotNil(t, m)
	assert.Equal(t, float64(3), m.GetCounter().GetValue())
}

func TestPrometheusMetrics_InFlight(t *testing.T) {
	const service = "inflight-svc"
	var during float64
	r := meteredRouter(service, http.StatusOK, func() {
		if m := findMetric(httpRequestsInFlight, map[string]string{"service": service}); m != nil {
			during = m.GetGauge().GetValue()
		}
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))

	assert.Equal(t, float64(1), during)
	after := findMetric(httpRequestsInFlight, map[string]string{"service": service})
	require.NotNil(t, after)
	assert.Equal(t, float64(0), after.GetGauge().GetValue())
}
