package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clinic/clinic/internal/platform/api"
	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Database calls made
// with that context are cancelled when it expires and the client gets a 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return api.Fail(c, http.StatusGatewayTimeout, "Le traitement de la requête a dépassé le délai autorisé")
			}
			return err
		}
	}
}
