package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetBuild("1.2.3")
	m.SetImmutabilityEnforced(false)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `provenant_build_info{version="1.2.3"} 1`)
	assert.Contains(t, rec.Body.String(), "provenant_immutability_enforced 0")
}
