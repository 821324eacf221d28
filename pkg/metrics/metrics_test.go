package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/garages/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/garages/"+id, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/garages/:id", "200")))
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.BookingCreated("confirmed")
	m.BookingCreated("confirmed")
	m.BookingCancelled(true)
	m.WalletMovement("refund", 25)
	m.WalletMovement("refund", 5)
	m.LedgerDrift()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues("confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancellations.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.walletMovements.WithLabelValues("refund")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.walletAmount.WithLabelValues("refund")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerDrift))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingCreated("confirmed")
		m.BookingCancelled(false)
		m.WalletMovement("top_up", 10)
		m.LedgerDrift()
		m.SideEffectFailed("notification")
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.BookingCreated("cancelled")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `parkly_bookings_created_total{status="cancelled"} 1`))
}
