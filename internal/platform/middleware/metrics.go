package middleware

import (
	"strconv"
	"time"

	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/labstack/echo/v4"
)

// Metrics records every request against its route pattern, so /patient/:cin
// is one series regardless of the CIN.
func Metrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := responseStatus(c, err)
			m.ObserveRequest(c.Request().Method, route, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}
