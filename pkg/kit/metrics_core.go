package kit

import "github.com/prometheus/client_golang/prometheus"

const (
	labelResult = "result"
	labelOp     = "op"

	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// CoreMetrics counts the storefront state transitions that never pass through
// an HTTP handler. A nil *CoreMetrics is valid and records nothing.
type CoreMetrics struct {
	CatalogLoads   *prometheus.CounterVec
	SearchSettles  prometheus.Counter
	CartMutations  *prometheus.CounterVec
	CartPersisting *prometheus.CounterVec
}

func NewCoreMetrics(reg *prometheus.Registry) *CoreMetrics {
	m := &CoreMetrics{
		CatalogLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_loads_total",
				Help: "Catalog fetch attempts by outcome kind",
			},
			[]string{labelResult},
		),
		SearchSettles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_settles_total",
				Help: "Debounced search queries that settled",
			},
		),
		CartMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_mutations_total",
				Help: "Cart add/remove calls",
			},
			[]string{labelOp},
		),
		CartPersisting: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_writes_total",
				Help: "Durable cart writes by result",
			},
			[]string{labelResult},
		),
	}

	reg.MustRegister(m.CatalogLoads, m.SearchSettles, m.CartMutations, m.CartPersisting)
	return m
}

func (m *CoreMetrics) CatalogLoad(result string) {
	if m == nil {
		return
	}
	m.CatalogLoads.WithLabelValues(result).Inc()
}

func (m *CoreMetrics) SearchSettled() {
	if m == nil {
		return
	}
	m.SearchSettles.Inc()
}

func (m *CoreMetrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
}

func (m *CoreMetrics) CartWrite(result string) {
	if m == nil {
		return
	}
	m.CartPersisting.WithLabelValues(result).Inc()
}
