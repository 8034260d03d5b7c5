package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMutation(t *testing.T) {
	r := NewRegistry()

	r.CartMutation("upsert", nil)
	r.CartMutation("upsert", nil)
	r.CartMutation("remove", errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CartMutations.WithLabelValues("upsert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CartMutations.WithLabelValues("remove", "error")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.OrdersPlaced.Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "storefront_orders_placed_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewRegistry_Independent(t *testing.T) {
	// separate registries must not collide on registration
	a, b := NewRegistry(), NewRegistry()
	a.OrdersPlaced.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OrdersPlaced))
}
