package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "error", StatusClass(0))
	assert.Equal(t, "2xx", StatusClass(201))
	assert.Equal(t, "3xx", StatusClass(304))
	assert.Equal(t, "4xx", StatusClass(410))
	assert.Equal(t, "5xx", StatusClass(502))
}

func TestRecordUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamCalls.WithLabelValues("/cable/test", "4xx"))

	RecordUpstream("/cable/test", 404, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(UpstreamCalls.WithLabelValues("/cable/test", "4xx")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/workspaces/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	counter := HTTPRequests.WithLabelValues(http.MethodGet, "/api/workspaces/{id}", "4xx")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workspaces/abc", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
