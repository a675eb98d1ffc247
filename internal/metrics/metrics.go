package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RateRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valutahub_rate_refreshes_total",
		Help: "Rate refresh attempts by source and outcome.",
	}, []string{"source", "outcome"})

	CachedPairs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "valutahub_cached_pairs",
		Help: "Number of pairs in the cached rate snapshot.",
	})

	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valutahub_transactions_total",
		Help: "Executed buy/sell transactions by type and outcome.",
	}, []string{"type", "outcome"})
)
