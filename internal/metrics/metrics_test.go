package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ExposesCounters(t *testing.T) {
	r := NewRegistry()
	r.Extractions.WithLabelValues(ResultOK).Inc()
	r.Extractions.WithLabelValues(ResultMalformed).Add(2)
	r.Orders.WithLabelValues("active").Set(3)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.Extractions.WithLabelValues(ResultMalformed)))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pedidos_extractions_total{result="ok"} 1`)
	assert.Contains(t, string(body), `pedidos_orders{store="active"} 3`)
}
