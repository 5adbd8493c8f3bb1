package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGeocode("ok", 10*time.Millisecond)
	c.RecordGeocode("unavailable", time.Second)
	c.RecordReport(false)
	c.RecordReport(true)
	c.RecordNotification("moderation_alert", "sent")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.geocodeTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.geocodeTotal.WithLabelValues("unavailable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.reportsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.escalations))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("moderation_alert", "sent")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTP(http.MethodGet, "/api/events", 200, time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "localevents_http_requests_total"))
}
