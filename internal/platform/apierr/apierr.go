// Package apierr renders every failure as the JSON payload clients expect:
// {"error": "...", "reason": "...", "success": false}.
package apierr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Reason is a short machine-checkable failure code.
type Reason string

const (
	ReasonBadRequest   Reason = "bad_request"
	ReasonValidation   Reason = "validation_failed"
	ReasonIDGeneration Reason = "id_generation_failed"
	ReasonNotFound     Reason = "not_found"
	ReasonConflict     Reason = "conflict"
	ReasonStorage      Reason = "storage_error"
	ReasonReportFailed Reason = "report_failed"
	ReasonTimeout      Reason = "timeout"
	ReasonRateLimited  Reason = "rate_limited"
	ReasonTooLarge     Reason = "payload_too_large"
	ReasonInternal     Reason = "internal"
)

// Payload is the response body of a failed request.
type Payload struct {
	Error   string `json:"error"`
	Reason  Reason `json:"reason"`
	Success bool   `json:"success"`
	Fields  any    `json:"fields,omitempty"`
}

// New returns an echo.HTTPError carrying a Payload.
func New(status int, reason Reason, msg string) *echo.HTTPError {
	return echo.NewHTTPError(status, Payload{Error: msg, Reason: reason})
}

// WithFields returns an echo.HTTPError whose payload also lists per-field
// problems.
func WithFields(status int, reason Reason, msg string, fields any) *echo.HTTPError {
	return echo.NewHTTPError(status, Payload{Error: msg, Reason: reason, Fields: fields})
}

// FromStatus builds the payload used when only a status code is known.
func FromStatus(status int) Payload {
	return Payload{Error: statusMessage(status), Reason: statusReason(status)}
}

// Handler is an echo.HTTPErrorHandler that writes Payload bodies. Plain
// errors are reported as internal failures without their text.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		payload := FromStatus(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch m := he.Message.(type) {
			case Payload:
				payload = m
			case string:
				payload = Payload{Error: m, Reason: statusReason(status)}
			default:
				payload = FromStatus(status)
			}
		} else {
			logger.Error().Err(err).
				Str("request_id", requestID(c)).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}
		payload.Success = false

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, payload)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}

func statusReason(status int) Reason {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		return ReasonBadRequest
	case http.StatusUnprocessableEntity:
		return ReasonValidation
	case http.StatusNotFound:
		return ReasonNotFound
	case http.StatusConflict:
		return ReasonConflict
	case http.StatusRequestEntityTooLarge:
		return ReasonTooLarge
	case http.StatusTooManyRequests:
		return ReasonRateLimited
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ReasonTimeout
	}
	return ReasonInternal
}

func statusMessage(status int) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "request failed"
}
