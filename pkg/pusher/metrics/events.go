package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arnac-io/auctionescrow/pkg/pusher/events"
)

var eventsQuantity = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "streaming_api_events_total",
	},
	[]string{
		"type",
		"event",
		"token_name",
	},
)

func SseEventSent(event events.Name, token string) {
	eventsQuantity.With(map[string]string{"type": "sse", "event": event.String(), "token_name": token}).Inc()
}

func WebsocketEventSent(event events.Name, token string) {
	eventsQuantity.With(map[string]string{"type": "websocket", "event": event.String(), "token_name": token}).Inc()
}

// WebsocketEventDropped counts events lost because a session queue was full.
func WebsocketEventDropped(event events.Name, token string) {
	eventsQuantity.With(map[string]string{"type": "websocket-dropped", "event": event.String(), "token_name": token}).Inc()
}

var queueLength = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "streaming_api_queue_length",
	Help:    "Number of events waiting in a streaming connection's queue.",
	Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
}, []string{"type", "event"})

func SseQueueLength(event events.Name, length int) {
	queueLength.With(map[string]string{"type": "sse", "event": event.String()}).Observe(float64(length))
}

func WebsocketQueueLength(event events.Name, length int) {
	queueLength.With(map[string]string{"type": "websocket", "event": event.String()}).Observe(float64(length))
}
