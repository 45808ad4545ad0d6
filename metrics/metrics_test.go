package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRunCounters(t *testing.T) {
	Discovered.WithLabelValues("bills").Add(3)
	Cooldowns.WithLabelValues("bills").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `congress_mirror_discovered_total{family="bills"}`)
	assert.Contains(t, body, `congress_mirror_cooldowns_total{family="bills"}`)
}
