package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	CartMutations *prometheus.CounterVec // op: upsert, remove, clear; result: ok, error
	OrdersPlaced  prometheus.Counter
	OrdersFailed  *prometheus.CounterVec // reason
	OrderValue    prometheus.Histogram

	CacheLookups *prometheus.CounterVec // key: all, product; result: hit, miss, error
	EventsFailed prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Local cart store writes",
	}, []string{"op", "result"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Orders created in the document store",
	})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_orders_failed_total",
		Help: "Checkout submissions that did not produce an order",
	}, []string{"reason"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_value_naira",
		Help:    "Total amount of placed orders",
		Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_cache_lookups_total",
		Help: "Catalog cache lookups",
	}, []string{"key", "result"})
	eventsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_events_failed_total",
		Help: "Order placed events that could not be published",
	})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests, httpDuration,
		cartMutations, ordersPlaced, ordersFailed, orderValue,
		cacheLookups, eventsFailed,
	)

	return &Registry{
		reg:           r,
		HTTPRequests:  httpRequests,
		HTTPDuration:  httpDuration,
		CartMutations: cartMutations,
		OrdersPlaced:  ordersPlaced,
		OrdersFailed:  ordersFailed,
		OrderValue:    orderValue,
		CacheLookups:  cacheLookups,
		EventsFailed:  eventsFailed,
	}
}

// CartMutation records one local store write.
func (r *Registry) CartMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.CartMutations.WithLabelValues(op, result).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
