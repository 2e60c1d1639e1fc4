package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/api/i18n"
	"github.com/arnac-io/auctionescrow/pkg/core"
	"github.com/arnac-io/auctionescrow/pkg/wire"
)

var (
	ErrRateLimit    = errors.New("rate limit")
	ErrUnauthorized = errors.New("unauthorized")
)

// badRequest is returned by handlers for malformed input. Reason is shown to the caller.
type badRequest struct {
	Reason string
}

func (e badRequest) Error() string {
	return e.Reason
}

func badRequestf(format string, args ...any) error {
	return badRequest{Reason: errors.Errorf(format, args...).Error()}
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError renders err as {"error": <localized message>, "code": {...}}.
func writeError(logger *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	lang := languageOf(r)
	var (
		status  int
		message string
		code    *core.ErrorCode
		br      badRequest
	)
	switch {
	case errors.As(err, &br):
		status = http.StatusBadRequest
		message = i18n.T(lang, i18n.C{
			DefaultMessage: &i18n.M{ID: "BadRequest", Other: "Bad request: {{.Reason}}"},
			TemplateData:   i18n.Template{"Reason": br.Reason},
		})
	case errors.Is(err, core.ErrEntityNotFound):
		status = http.StatusNotFound
		message = i18n.T(lang, i18n.C{DefaultMessage: &i18n.M{ID: "NotFound", Other: "Not found."}})
	case errors.Is(err, ErrRateLimit):
		status = http.StatusTooManyRequests
		message = i18n.T(lang, i18n.C{DefaultMessage: &i18n.M{ID: "TooManyRequests", Other: "Too many requests."}})
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	default:
		c := core.CodeOf(err)
		if c.Kind == "internal" {
			logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
			status = http.StatusInternalServerError
		} else {
			status = http.StatusUnprocessableEntity
			code = &c
		}
		message = i18n.Error(lang, c)
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(message)
		if code != nil {
			e.FieldStart("code")
			wire.EncodeErrorCode(e, *code)
		}
		e.ObjEnd()
	})
}
