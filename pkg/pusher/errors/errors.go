package errors

import (
	"net/http"

	"github.com/go-faster/errors"
)

// HTTPError is returned by streaming handlers to reject a subscription request.
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// AsHTTPError reports whether err carries an HTTPError and returns it.
func AsHTTPError(err error) (HTTPError, bool) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return HTTPError{}, false
}

func BadRequest(msg string) HTTPError {
	return HTTPError{
		Code:    http.StatusBadRequest,
		Message: msg,
	}
}

func InternalServerError(msg string) HTTPError {
	return HTTPError{
		Code:    http.StatusInternalServerError,
		Message: msg,
	}
}
