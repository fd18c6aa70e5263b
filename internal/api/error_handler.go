package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusByCode maps stable domain codes to HTTP statuses.
var statusByCode = map[string]int{
	domain.CodeNotFound:           http.StatusNotFound,
	domain.CodePreconditionFailed: http.StatusConflict,
	domain.CodeForbidden:          http.StatusForbidden,
	domain.CodeInvalidSender:      http.StatusForbidden,
	domain.CodeNoReceiver:         http.StatusConflict,
	domain.CodeStorageFault:       http.StatusServiceUnavailable,
	domain.CodeInvalidInput:       http.StatusUnprocessableEntity,
	domain.CodeInvalidCredentials: http.StatusUnauthorized,
	domain.CodeConflict:           http.StatusConflict,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status through the stable error code.
//   - Logs storage faults and unexpected errors without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<code>", "message": "<text>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, auth middleware).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: codeForStatus(he.Code), Message: fmt.Sprintf("%v", he.Message)}
	}

	code := domain.Code(err)
	switch code {
	case domain.CodeStorageFault:
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("storage fault")
		return http.StatusServiceUnavailable, errorResponse{Error: code, Message: "storage temporarily unavailable"}
	case domain.CodeInternal:
		log.Error().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("unhandled error")
		return http.StatusInternalServerError, errorResponse{Error: code, Message: "internal server error"}
	}

	return statusByCode[code], errorResponse{Error: code, Message: err.Error()}
}

// codeForStatus gives transport errors the same vocabulary as domain errors.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return domain.CodeInvalidInput
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return domain.CodeForbidden
	case http.StatusNotFound:
		return domain.CodeNotFound
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return domain.CodeConflict
	case http.StatusServiceUnavailable:
		return domain.CodeStorageFault
	default:
		return domain.CodeInternal
	}
}
