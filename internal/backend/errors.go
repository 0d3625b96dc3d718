package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

// ErrNotArchive is returned by Download when the payload is not an APK/zip.
var ErrNotArchive = errors.New("downloaded artifact is not an APK archive")

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Detail)
}

// Temporary reports whether the failure is on the backend's side.
func (e *StatusError) Temporary() bool {
	return e.Code >= http.StatusInternalServerError
}

// newStatusError extracts FastAPI's {"detail": ...} when present.
func newStatusError(resp *resty.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode()}

	var body struct {
		Detail any `json:"detail"`
	}
	if err := sonic.Unmarshal(resp.Body(), &body); err == nil && body.Detail != nil {
		switch d := body.Detail.(type) {
		case string:
			se.Detail = d
		default:
			if raw, err := sonic.MarshalString(d); err == nil {
				se.Detail = raw
			}
		}
	}
	return se
}

// countsAsFailure decides what trips the breaker: transport errors and 5xx
// do, client errors and caller cancellation do not.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
