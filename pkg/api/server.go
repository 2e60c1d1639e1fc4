package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Narasimha1997/ratelimiter"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sse"
	"github.com/arnac-io/auctionescrow/pkg/pusher/websocket"
)

type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	limiter    *ratelimiter.DefaultLimiter
	mux        *http.ServeMux
}

type ServerOptions struct {
	middleware    []Middleware
	receiptSource sources.ReceiptSource
	submitLimit   uint64
	apiKeys       map[string]string
}

type ServerOption func(options *ServerOptions)

func WithMiddleware(m ...Middleware) ServerOption {
	return func(options *ServerOptions) {
		options.middleware = append(options.middleware, m...)
	}
}

// WithReceiptSource enables the streaming endpoints.
func WithReceiptSource(source sources.ReceiptSource) ServerOption {
	return func(options *ServerOptions) {
		options.receiptSource = source
	}
}

// WithSubmitLimit caps submitted transactions per second. Zero disables the limit.
func WithSubmitLimit(perSecond uint64) ServerOption {
	return func(options *ServerOptions) {
		options.submitLimit = perSecond
	}
}

// WithAPIKeys maps accepted API keys to token names.
func WithAPIKeys(keys map[string]string) ServerOption {
	return func(options *ServerOptions) {
		options.apiKeys = keys
	}
}

func NewServer(log *zap.Logger, handler *Handler, address string, opts ...ServerOption) (*Server, error) {
	options := &ServerOptions{}
	for _, o := range opts {
		o(options)
	}
	middleware := []Middleware{metricsMiddleware, loggingMiddleware(log), authMiddleware(options.apiKeys)}
	middleware = append(middleware, options.middleware...)

	s := &Server{
		logger: log,
		mux:    http.NewServeMux(),
	}
	s.handle("GET /v2/accounts/{address}", "getAccount", handler.GetAccount, middleware)
	s.handle("GET /v2/auctions/{address}", "getAuction", handler.GetAuction, middleware)
	s.handle("GET /v2/auctions", "getAuctions", handler.GetAuctions, middleware)
	s.handle("GET /v2/escrow/authority", "getEscrowAuthority", handler.GetEscrowAuthority, middleware)
	s.handle("GET /v2/receipts/{id}", "getReceipt", handler.GetReceipt, middleware)

	submitMiddleware := middleware
	if options.submitLimit > 0 {
		limiter := ratelimiter.NewDefaultLimiter(options.submitLimit, time.Second)
		s.limiter = limiter
		submitMiddleware = append(submitMiddleware[:len(submitMiddleware):len(submitMiddleware)], rateLimitMiddleware(limiter))
	}
	s.handle("POST /v2/transactions", "submitTransaction", handler.SubmitTransaction, submitMiddleware)

	if options.receiptSource != nil {
		s.stream("GET /v2/ws", "websocket", websocket.Handler(log, options.receiptSource), middleware)
		sseHandler := sse.NewHandler(options.receiptSource)
		s.stream("GET /v2/sse/receipts", "sseReceipts", sse.Stream(sseHandler.SubscribeToReceipts), middleware)
	}

	s.httpServer = &http.Server{
		Addr:              address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func chain(operation string, fn HandlerFunc, middleware []Middleware) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		fn = middleware[i](operation, fn)
	}
	return fn
}

func (s *Server) handle(pattern, operation string, fn HandlerFunc, middleware []Middleware) {
	fn = chain(operation, fn, middleware)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(s.logger, w, r, err)
		}
	})
}

// stream registers a long-lived endpoint. Such handlers write their own errors
// unless they fail before taking over the connection.
func (s *Server) stream(pattern, operation string, fn HandlerFunc, middleware []Middleware) {
	inner := fn
	fn = chain(operation, func(w http.ResponseWriter, r *http.Request) error {
		if err := inner(w, r); err != nil {
			s.logger.Debug("stream closed", zap.String("operation", operation), zap.Error(err))
		}
		return nil
	}, middleware)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(s.logger, w, r, err)
		}
	})
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Run() {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		s.logger.Info("auctiond api quit")
		return
	}
	s.logger.Fatal("ListenAndServe() failed", zap.Error(err))
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		_ = s.limiter.Kill()
	}
	return s.httpServer.Shutdown(ctx)
}
