package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_chat_events",
	Help: "Number of chat events received, by kind",
}, []string{"kind"})
