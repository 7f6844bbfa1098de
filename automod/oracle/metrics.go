package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var oracleAPIDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "doxguard_oracle_api_duration_sec",
	Help: "Duration of classifier API calls",
})

var oracleAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "doxguard_oracle_api_count",
	Help: "Number of classifier API calls, by HTTP status code",
}, []string{"status"})

var oracleParseFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "doxguard_oracle_parse_failures",
	Help: "Number of classifier responses which could not be parsed",
})
