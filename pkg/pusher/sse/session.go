package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arnac-io/auctionescrow/pkg/pusher/metrics"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
)

// session represents an HTTP connection from a client and
// implements a loop to stream events from a channel to http.ResponseWriter.
type session struct {
	eventCh      chan Event
	cancel       sources.CancelFn
	pingInterval time.Duration
	token        string
}

func newSession(token string) *session {
	return &session{
		eventCh:      make(chan Event, 100),
		pingInterval: 5 * time.Second,
		token:        token,
	}
}

// SendEvent queues an event. Events are dropped while the queue is full.
func (s *session) SendEvent(event Event) {
	metrics.SseQueueLength(event.Name, len(s.eventCh))
	select {
	case s.eventCh <- event:
	default:
	}
}

func (s *session) SetCancelFn(cancel sources.CancelFn) {
	s.cancel = cancel
}

func (s *session) StreamEvents(ctx context.Context, writer http.ResponseWriter) error {
	if s.cancel != nil {
		defer s.cancel()
	}

	flusher := writer.(http.Flusher)
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		var err error
		select {
		case <-ctx.Done():
			return nil
		case msg, open := <-s.eventCh:
			if !open {
				return nil
			}
			metrics.SseEventSent(msg.Name, s.token)
			_, err = fmt.Fprintf(writer, "event: message\nid: %v\ndata: %v\n\n", msg.EventID, string(msg.Data))
		case <-ticker.C:
			_, err = fmt.Fprintf(writer, "event: heartbeat\n\n")
		}
		if err != nil {
			// closing a connection
			return err
		}
		flusher.Flush()
	}
}
