// Package validate holds the input formats shared by every resource: national
// identity numbers, Malagasy phone numbers, emails and date-times.
package validate

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// Client messages for format failures.
const (
	MsgCIN      = "Le CIN doit être au format XXXX XXXX XXXX"
	MsgPhone    = "Le téléphone doit être au format +261 XX XX XXX XX"
	MsgEmail    = "Format d'email invalide"
	MsgDateTime = "Format de date/heure invalide"
)

var (
	cinPattern   = regexp.MustCompile(`^[0-9]{4} [0-9]{4} [0-9]{4}$`)
	phonePattern = regexp.MustCompile(`^\+261 [0-9]{2} [0-9]{2} [0-9]{3} [0-9]{2}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// CIN reports whether s is a national ID: three groups of four digits
// separated by single spaces.
func CIN(s string) bool { return cinPattern.MatchString(s) }

func Phone(s string) bool { return phonePattern.MatchString(s) }

func Email(s string) bool { return emailPattern.MatchString(s) }

// Blank reports an empty or whitespace-only value.
func Blank(s string) bool { return strings.TrimSpace(s) == "" }

// OneOf reports whether s is one of allowed.
func OneOf(s string, allowed ...string) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

var ErrDateTime = errors.New("invalid date/time")

// Layouts without a zone are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime accepts RFC 3339 and the zone-less forms sent by HTML
// datetime-local inputs and SQL clients.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrDateTime
}

// DateTime is a time.Time that decodes from any ParseDateTime form and
// encodes as RFC 3339.
type DateTime struct {
	time.Time
}

// UnmarshalJSON reports bad input as an apperr.Error so the client gets
// MsgDateTime rather than a generic decoding failure.
func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return apperr.Wrap(apperr.KindInvalid, MsgDateTime, ErrDateTime)
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalid, MsgDateTime, err)
	}
	d.Time = t
	return nil
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}

// Value lets a DateTime be passed straight to the database driver.
func (d DateTime) Value() (driver.Value, error) {
	return d.Time, nil
}

// Optional distinguishes a JSON field that was absent from one sent as null.
// Partial updates write Set fields only, and Null ones as SQL NULL.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Null = true
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) Present() bool { return o.Set }
func (o Optional[T]) IsNull() bool  { return o.Null }
func (o Optional[T]) Any() any      { return o.Value }

// Some builds a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}
