package sse

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/pusher/errors"
	"github.com/arnac-io/auctionescrow/pkg/pusher/events"
	"github.com/arnac-io/auctionescrow/pkg/pusher/sources"
)

// Handler handles http methods for sse.
type Handler struct {
	receiptSource  sources.ReceiptSource
	currentEventID int64
}

var accountsPerRequestHistogramVec = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sse_accounts_per_request",
		Buckets: []float64{1, 2, 3, 4, 5, 10, 20, 30, 40, 50, 100, 1000},
	},
	[]string{"method"},
)

type handlerFunc func(session *session, request *http.Request) error

func NewHandler(receiptSource sources.ReceiptSource) *Handler {
	return &Handler{
		receiptSource:  receiptSource,
		currentEventID: time.Now().UnixNano(),
	}
}

func parseQueryStrings(accountsStr string, failedStr string) (*sources.SubscribeToReceiptsOptions, error) {
	options := sources.SubscribeToReceiptsOptions{
		FailedToo: strings.ToLower(failedStr) == "true",
	}
	if strings.ToUpper(accountsStr) == "ALL" {
		options.AllAccounts = true
		return &options, nil
	}
	if len(accountsStr) == 0 {
		return nil, fmt.Errorf("no accounts given")
	}
	accountStrings := strings.Split(accountsStr, ",")
	options.Accounts = make([]core.Address, 0, len(accountStrings))
	for _, account := range accountStrings {
		address, err := core.ParseAddress(account)
		if err != nil {
			return nil, err
		}
		options.Accounts = append(options.Accounts, address)
	}
	return &options, nil
}

// SubscribeToReceipts handles "?accounts=<a1>,<a2>|all&failed=true".
func (h *Handler) SubscribeToReceipts(session *session, request *http.Request) error {
	if h.receiptSource == nil {
		return errors.BadRequest("receipt source is not configured")
	}
	query := request.URL.Query()
	options, err := parseQueryStrings(query.Get("accounts"), query.Get("failed"))
	if err != nil {
		return errors.BadRequest(fmt.Sprintf("failed to parse query parameters: %v", err))
	}
	if !options.AllAccounts {
		accountsPerRequestHistogramVec.WithLabelValues("receipts").Observe(float64(len(options.Accounts)))
	}
	cancelFn := h.receiptSource.SubscribeToReceipts(request.Context(), func(data []byte) {
		session.SendEvent(Event{
			Name:    events.AccountReceiptEvent,
			EventID: h.nextID(),
			Data:    data,
		})
	}, *options)
	session.SetCancelFn(cancelFn)
	return nil
}

func (h *Handler) nextID() int64 {
	return atomic.AddInt64(&h.currentEventID, 1)
}
