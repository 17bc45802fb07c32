package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/clinic/clinic/internal/platform/api"
	"github.com/labstack/echo/v4"
)

// BodyLimit caps request bodies. multipartLimit applies to multipart/form-data
// requests (exam image uploads), defaultLimit to everything else.
//
// Limits are human-readable strings: "1M", "10M", "512K", "1G". A bare number
// is bytes.
func BodyLimit(defaultLimit, multipartLimit string) echo.MiddlewareFunc {
	defaultBytes := parseLimit(defaultLimit)
	multipartBytes := parseLimit(multipartLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
				limit = multipartBytes
			}

			if req.ContentLength > limit {
				return payloadTooLarge(c, limit)
			}

			// Content-Length can be absent or wrong.
			req.Body = &limitedReadCloser{
				ReadCloser: req.Body,
				remaining:  limit,
			}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	exceeded  bool
}

func (r *limitedReadCloser) Read(p []byte) (n int, err error) {
	if r.exceeded {
		return 0, echo.ErrStatusRequestEntityTooLarge
	}

	// One extra byte detects overflow.
	toRead := int64(len(p))
	if toRead > r.remaining+1 {
		toRead = r.remaining + 1
	}

	n, err = r.ReadCloser.Read(p[:toRead])
	r.remaining -= int64(n)

	if r.remaining < 0 {
		r.exceeded = true
		return 0, echo.ErrStatusRequestEntityTooLarge
	}
	return n, err
}

func payloadTooLarge(c echo.Context, limit int64) error {
	return api.Fail(c, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Le corps de la requête dépasse la taille maximale de %d octets", limit))
}

// parseLimit turns "1M", "512K", "10G" or a bare byte count into bytes.
// Unparseable input falls back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 1 << 20
	}

	var multiplier int64 = 1
	s = strings.TrimSuffix(s, "B")
	switch {
	case strings.HasSuffix(s, "G"):
		multiplier = 1 << 30
	case strings.HasSuffix(s, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(s, "K"):
		multiplier = 1 << 10
	}
	if multiplier > 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n * multiplier
}
