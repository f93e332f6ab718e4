package wishlist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts wishlist synchronization outcomes.
type Metrics struct {
	loads    *prometheus.CounterVec
	migrated prometheus.Counter
}

// NewMetrics registers the wishlist collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		loads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_wishlist_loads_total",
				Help: "Wishlist loads by outcome (remote, fallback, skipped, error)",
			},
			[]string{"outcome"},
		),
		migrated: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_wishlist_migrated_items_total",
			Help: "Locally saved wishlist items pushed to the backend after it became available",
		}),
	}
}
