package escrow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var instructionsCounterVec = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "escrow_instructions_total",
}, []string{"command", "result"})

var bidPriceHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "escrow_accepted_bid_price",
	Buckets: prometheus.ExponentialBuckets(1, 10, 12),
})
