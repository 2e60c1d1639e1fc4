package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/pusher/events"
	"github.com/arnac-io/auctionescrow/pkg/pusher/metrics"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
	"github.com/arnac-io/auctionescrow/pkg/pusher/utils"
)

const subscriptionLimit = 1000 // limitation of subscription by connection

// session is a light-weight implementation of JSON-RPC protocol over a websocket connection from a client.
type session struct {
	logger            *zap.Logger
	conn              *websocket.Conn
	receiptSource     sources.ReceiptSource
	eventCh           chan event
	subscriptions     map[core.Address]sources.CancelFn
	pingInterval      time.Duration
	subscriptionLimit int
	token             string
}

type event struct {
	Name   events.Name
	Method string
	Params []byte
}

func newSession(logger *zap.Logger, receiptSource sources.ReceiptSource, conn *websocket.Conn) *session {
	return &session{
		logger:            logger,
		eventCh:           make(chan event, 1000),
		conn:              conn,
		receiptSource:     receiptSource,
		subscriptions:     map[core.Address]sources.CancelFn{},
		pingInterval:      5 * time.Second,
		subscriptionLimit: subscriptionLimit,
	}
}

func (s *session) cancel() {
	for _, cancelFn := range s.subscriptions {
		cancelFn()
	}
}

func (s *session) Run(ctx context.Context) chan JsonRPCRequest {
	requestCh := make(chan JsonRPCRequest)
	s.token = utils.TokenNameFromContext(ctx)
	go func() {
		defer s.cancel()

		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			var err error
			select {
			case <-ctx.Done():
				return
			case e := <-s.eventCh:
				response := JsonRPCResponse{
					JSONRPC: "2.0",
					Method:  e.Method,
					Params:  e.Params,
				}
				metrics.WebsocketEventSent(e.Name, s.token)
				err = s.conn.WriteJSON(response)
			case request := <-requestCh:
				var response string
				switch request.Method {
				case "subscribe_account":
					response = s.subscribeToReceipts(ctx, request.Params)
				case "unsubscribe_account":
					response = s.unsubscribeFromReceipts(request.Params)
				default:
					response = fmt.Sprintf("unknown method '%v'", request.Method)
				}
				err = s.writeResponse(response, request)
			case <-ticker.C:
				metrics.WebsocketEventSent(events.PingEvent, s.token)
				err = s.conn.WriteMessage(websocket.PingMessage, []byte{})
			}
			if err != nil {
				s.logger.Error("websocket session failed", zap.Error(err))
				return
			}
		}
	}()
	return requestCh
}

func (s *session) sendEvent(e event) {
	metrics.WebsocketQueueLength(e.Name, len(s.eventCh))
	select {
	case s.eventCh <- e:
	default:
		metrics.WebsocketEventDropped(e.Name, s.token)
		s.logger.Warn("event channel is full, dropping event",
			zap.String("event", string(e.Name)))
	}
}

type accountOptions struct {
	Account   core.Address
	FailedToo bool
}

// processAccountParam parses "<address>" or "<address>;failed=true".
func processAccountParam(param string) (*accountOptions, error) {
	parts := strings.Split(param, ";")
	if len(parts) > 2 {
		return nil, fmt.Errorf("failed to process '%v' account: invalid format", param)
	}
	account, err := core.ParseAddress(parts[0])
	if err != nil {
		return nil, fmt.Errorf("failed to process '%v' account: %v", param, err)
	}
	if len(parts) == 1 {
		return &accountOptions{Account: account}, nil
	}
	kv := strings.Split(parts[1], "=")
	if len(kv) != 2 || strings.ToLower(kv[0]) != "failed" {
		return nil, fmt.Errorf("failed to process '%v' account: invalid format", param)
	}
	switch strings.ToLower(kv[1]) {
	case "true":
		return &accountOptions{Account: account, FailedToo: true}, nil
	case "false":
		return &accountOptions{Account: account}, nil
	}
	return nil, fmt.Errorf("failed to process '%v' account: invalid format", param)
}

// subscribeToReceipts subscribes to receipts of transactions touching the specified accounts.
func (s *session) subscribeToReceipts(ctx context.Context, params []string) string {
	accounts := make(map[core.Address]accountOptions, len(params))
	for _, param := range params {
		options, err := processAccountParam(param)
		if err != nil {
			return err.Error()
		}
		accounts[options.Account] = *options
	}
	if len(s.subscriptions)+len(accounts) > s.subscriptionLimit {
		return fmt.Sprintf("you have reached the limit of %v subscriptions", s.subscriptionLimit)
	}
	var counter int
	for account, accountOptions := range accounts {
		if _, ok := s.subscriptions[account]; ok {
			continue
		}
		options := sources.SubscribeToReceiptsOptions{
			Accounts:  []core.Address{account},
			FailedToo: accountOptions.FailedToo,
		}
		cancel := s.receiptSource.SubscribeToReceipts(ctx, func(eventData []byte) {
			s.sendEvent(event{
				Name:   events.AccountReceiptEvent,
				Method: "account_receipt",
				Params: eventData,
			})
		}, options)
		s.subscriptions[account] = cancel
		counter += 1
	}
	return fmt.Sprintf("success! %v new subscriptions created", counter)
}

func (s *session) unsubscribeFromReceipts(params []string) string {
	var counter int
	for _, a := range params {
		account, err := core.ParseAddress(a)
		if err != nil {
			return fmt.Sprintf("failed to process '%v' account: %v", a, err)
		}
		if cancelFn, ok := s.subscriptions[account]; ok {
			cancelFn()
			delete(s.subscriptions, account)
			counter += 1
		}
	}
	return fmt.Sprintf("success! %v subscription(s) removed", counter)
}

func jsonRPCResponseMessage(message string, id uint64, jsonrpc, method string) (JsonRPCResponse, error) {
	mes, err := json.Marshal(message)
	if err != nil {
		return JsonRPCResponse{}, err
	}
	return JsonRPCResponse{
		ID:      id,
		JSONRPC: jsonrpc,
		Method:  method,
		Result:  mes,
	}, nil
}

func (s *session) writeResponse(message string, request JsonRPCRequest) error {
	resp, err := jsonRPCResponseMessage(message, request.ID, request.JSONRPC, request.Method)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(resp)
}
