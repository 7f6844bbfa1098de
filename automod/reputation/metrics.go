package reputation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_reputation_store_failures",
	Help: "Number of reputation queries which degraded to zero because the incident store failed",
}, []string{"kind"})
