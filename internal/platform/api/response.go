// Package api holds the JSON envelope shared by every endpoint and the echo
// error handler that renders failures into it.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// ErrorResponse is the failure envelope. Details is only filled in development.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// Message answers 200 with a human readable message, e.g. after an update.
func Message(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

func Created(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Message: msg, Data: data})
}

// List answers 200 with the items and their count. A nil slice is sent as [].
func List[T any](c echo.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	return c.JSON(http.StatusOK, Response{Success: true, Data: items, Count: &n})
}

// Count answers 200 with a bare count and no data.
func Count(c echo.Context, n int) error {
	return c.JSON(http.StatusOK, Response{Success: true, Count: &n})
}

// Fail writes an error envelope directly, for middleware that answers
// without going through the error handler.
func Fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, ErrorResponse{Success: false, Error: msg})
}

// Bind decodes the request into v. Decoding failures become client errors;
// an *apperr.Error raised by a field decoder keeps its own message.
func Bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return ae
		}
		return apperr.Wrap(apperr.KindInvalid, "Corps de requête invalide", err)
	}
	return nil
}

// IDParam reads a positive integer path parameter.
func IDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("Identifiant invalide")
	}
	return id, nil
}
