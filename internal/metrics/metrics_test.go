package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(PaymentsRecorded)
	PaymentsRecorded.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PaymentsRecorded))

	ReviewsWritten.WithLabelValues("create").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(ReviewsWritten.WithLabelValues("create")), 1.0)
}

func TestHandlerExposesNamespace(t *testing.T) {
	ConnectionNumberRetries.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace_connections_number_retries_total")
}
