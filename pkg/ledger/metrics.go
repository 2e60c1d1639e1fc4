package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transactionsCounterVec = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_transactions_total",
		Help: "Transactions submitted to the runtime by outcome",
	},
	[]string{"result"},
)

var submitTimeHistogramVec = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ledger_submit_duration_seconds",
		Help:    "Runtime.Submit execution duration distribution in seconds",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 1},
	},
	[]string{"result"},
)
