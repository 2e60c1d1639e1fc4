package sse

import (
	"net/http"

	"github.com/arnac-io/auctionescrow/pkg/pusher/errors"
	"github.com/arnac-io/auctionescrow/pkg/pusher/metrics"
	"github.com/arnac-io/auctionescrow/pkg/pusher/utils"
)

func writeError(writer http.ResponseWriter, err error) {
	if httpErr, ok := errors.AsHTTPError(err); ok {
		writer.WriteHeader(httpErr.Code)
		writer.Write([]byte(httpErr.Message))
		return
	}
	writer.WriteHeader(http.StatusInternalServerError)
	writer.Write([]byte(err.Error()))
}

// Stream turns a subscription handler into an event-stream endpoint.
func Stream(handler handlerFunc) func(http.ResponseWriter, *http.Request) error {
	return func(writer http.ResponseWriter, request *http.Request) error {
		_, ok := writer.(http.Flusher)
		if !ok {
			err := errors.InternalServerError("streaming unsupported")
			writeError(writer, err)
			return err
		}
		token := utils.TokenNameFromContext(request.Context())
		session := newSession(token)
		if err := handler(session, request); err != nil {
			writeError(writer, err)
			return err
		}

		writer.Header().Set("Content-Type", "text/event-stream")
		writer.Header().Set("Cache-Control", "no-cache")
		writer.Header().Set("Connection", "keep-alive")

		metrics.OpenSseConnection(token)
		defer metrics.CloseSseConnection(token)

		return session.StreamEvents(request.Context(), writer)
	}
}
