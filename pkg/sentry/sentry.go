package sentry

import (
	"fmt"
	"os"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
)

type Level = sentrygo.Level

const LevelError = sentrygo.LevelError

var inited = false

func init() {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return
	}
	err := sentrygo.Init(sentrygo.ClientOptions{
		Dsn:              dsn,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		fmt.Printf("failed to sentry init: %s", err)
		return
	}
	inited = true
	sentrygo.Flush(2 * time.Second)
}

// TransactionFailure describes a transaction the ledger runtime aborted with a fatal error.
type TransactionFailure struct {
	ReceiptID string
	Code      string
	Message   string
	Programs  []string
}

func (f TransactionFailure) event() *sentrygo.Event {
	e := sentrygo.NewEvent()
	e.Level = LevelError
	e.Message = "transaction aborted: " + f.Code
	e.Tags = map[string]string{
		"receipt":    f.ReceiptID,
		"error_code": f.Code,
	}
	e.Extra = map[string]interface{}{
		"error":    f.Message,
		"programs": f.Programs,
	}
	// one issue per error code, not per receipt
	e.Fingerprint = []string{"transaction-aborted", f.Code}
	return e
}

// ReportTransactionFailure sends f asynchronously. It does nothing unless SENTRY_DSN is set.
func ReportTransactionFailure(f TransactionFailure) {
	if !inited {
		return
	}
	go sentrygo.CurrentHub().Clone().CaptureEvent(f.event())
}
