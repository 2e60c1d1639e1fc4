package api

import (
	"net/http"
	"strings"

	"github.com/Narasimha1997/ratelimiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/pusher/utils"
)

// HandlerFunc is an API endpoint. Returned errors are rendered by the route wrapper.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

type Middleware func(operation string, next HandlerFunc) HandlerFunc

func loggingMiddleware(logger *zap.Logger) Middleware {
	return func(operation string, next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			logger := logger.With(
				zap.String("operation", operation),
				zap.String("path", r.URL.Path),
			)
			logger.Debug("Handling request")
			if err := next(w, r); err != nil {
				logger.Info("Fail", zap.Error(err))
				return err
			}
			logger.Debug("Success")
			return nil
		}
	}
}

var httpResponseTimeMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 10},
}, []string{"operation"})

func metricsMiddleware(operation string, next HandlerFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		t := prometheus.NewTimer(httpResponseTimeMetric.WithLabelValues(operation))
		defer t.ObserveDuration()
		return next(w, r)
	}
}

// authMiddleware resolves "Authorization: Bearer <key>" to a token name.
// With no keys configured every request is accepted anonymously.
func authMiddleware(keys map[string]string) Middleware {
	return func(operation string, next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			if len(keys) == 0 {
				return next(w, r)
			}
			key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if key == "" {
				key = r.URL.Query().Get("token")
			}
			name, ok := keys[key]
			if !ok {
				return ErrUnauthorized
			}
			return next(w, r.WithContext(utils.WithTokenName(r.Context(), name)))
		}
	}
}

// rateLimitMiddleware allows at most limit requests per sliding window across all callers.
func rateLimitMiddleware(limiter *ratelimiter.DefaultLimiter) Middleware {
	return func(operation string, next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			allowed, err := limiter.ShouldAllow(1)
			if err != nil {
				return err
			}
			if !allowed {
				return ErrRateLimit
			}
			return next(w, r)
		}
	}
}
