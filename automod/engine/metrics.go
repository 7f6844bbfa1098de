package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "doxguard_verdict_duration_sec",
	Help: "Total duration of triage for a single message",
})

var verdictOutcomeCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_verdict_outcomes",
	Help: "Number of triaged messages, by outcome",
}, []string{"outcome"})

var reportsFiledCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_reports_filed",
	Help: "Number of reports added to the review queue, by source",
}, []string{"source"})

var dispositionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_dispositions",
	Help: "Number of executed review dispositions, by whether content was removed",
}, []string{"removed"})

var remediationFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_remediation_failures",
	Help: "Number of side effects which failed against the chat platform or stores",
}, []string{"action"})

var tierActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_tier_actions",
	Help: "Number of consequence tier notices delivered",
}, []string{"tier"})

var queueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "doxguard_review_queue_depth",
	Help: "Number of reports awaiting human review, as last observed",
})
