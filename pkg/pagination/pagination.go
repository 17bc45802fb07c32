package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// MaxLimit caps a requested page size. Lists are unbounded unless the
// client asks for a limit, which is what the frontend tables expect.
const MaxLimit = 500

// Params holds pagination parameters extracted from a request. A zero
// Limit means no limit.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Invalid or negative values are ignored.
func FromContext(c echo.Context) Params {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// SQL returns the LIMIT/OFFSET suffix for a query, with a leading space,
// or "" when no paging was requested.
func (p Params) SQL() string {
	switch {
	case p.Limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", p.Limit, p.Offset)
	case p.Offset > 0:
		return fmt.Sprintf(" OFFSET %d", p.Offset)
	default:
		return ""
	}
}
