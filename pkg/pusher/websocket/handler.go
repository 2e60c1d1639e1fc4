package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/pusher/metrics"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
	"github.com/arnac-io/auctionescrow/pkg/pusher/utils"
)

var (
	upgrader websocket.Upgrader // use default options
)

type JsonRPCRequest struct {
	ID      uint64   `json:"id,omitempty"`
	JSONRPC string   `json:"jsonrpc,omitempty"`
	Method  string   `json:"method,omitempty"`
	Params  []string `json:"params,omitempty"`
}

type JsonRPCResponse struct {
	ID      uint64          `json:"id,omitempty"`
	JSONRPC string          `json:"jsonrpc,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Handler upgrades the connection and serves JSON-RPC subscriptions to receipts until the client goes away.
func Handler(logger *zap.Logger, receiptSource sources.ReceiptSource) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("failed to upgrade HTTP connection to websocket protocol",
				zap.Error(err),
				zap.String("remoteAddr", r.RemoteAddr))
			return err
		}
		defer conn.Close()

		token := utils.TokenNameFromContext(r.Context())
		metrics.OpenWebsocketConnection(token)
		defer metrics.CloseWebsocketConnection(token)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		session := newSession(logger, receiptSource, conn)
		requestCh := session.Run(ctx)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					return nil
				}
				return err
			}
			var request JsonRPCRequest
			if err = json.Unmarshal(msg, &request); err != nil {
				logger.Error("request unmarshalling error", zap.Error(err))
				return err
			}
			select {
			case requestCh <- request:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
