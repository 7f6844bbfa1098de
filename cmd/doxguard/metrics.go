package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "doxguard_events_received",
	Help: "Number of chat events received from the bridge",
})

var eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "doxguard_events_failed",
	Help: "Number of chat events which failed processing",
})
