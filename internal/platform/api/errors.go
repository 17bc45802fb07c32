package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const internalMessage = "Erreur interne du serveur"

// ErrorHandler renders apperr and echo errors into ErrorResponse. Server
// errors are logged with their cause; dev exposes the cause to the client.
func ErrorHandler(logger zerolog.Logger, dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().
				Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		body := ErrorResponse{Success: false, Error: msg}
		if dev && status >= http.StatusInternalServerError {
			body.Details = err.Error()
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func classify(err error) (int, string) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := ae.Kind.Status()
		if status >= http.StatusInternalServerError && ae.Message == "" {
			return status, internalMessage
		}
		return status, ae.Message
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, internalMessage
		}
		return he.Code, fmt.Sprint(he.Message)
	}

	return http.StatusInternalServerError, internalMessage
}
