package chatbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var bridgeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "doxguard_chatbridge_duration_sec",
	Help: "Duration of chat bridge API calls",
}, []string{"method"})

var bridgeStatus = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_chatbridge_requests",
	Help: "Number of chat bridge API calls, by method and HTTP status code",
}, []string{"method", "status"})
