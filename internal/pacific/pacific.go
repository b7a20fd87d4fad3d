// Package pacific resolves civil (wall-clock) date/times published on the
// site into absolute instants. Every event the club publishes is written
// in US Pacific local time, so instead of a tzdata lookup the package
// carries exactly two fixed offsets (PST -08:00, PDT -07:00) and the
// modern US daylight-saving rule, effective 2007 and later: DST starts on
// the 2nd Sunday of March at 02:00 local and ends on the 1st Sunday of
// November at 02:00 local.
//
// Known approximation: the DST verdict is evaluated against the naive
// wall-clock components, so the skipped hour on the spring-forward day
// (02:00 to 03:00) and the repeated hour on the fall-back day (01:00 to
// 02:00)
// cannot be told apart from their neighbors. Events scheduled inside
// those one-hour windows resolve to a plausible but not authoritative
// instant.
package pacific

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat is returned when a civil date/time string cannot
// be parsed into valid year/month/day[/hour/minute/second] components.
var ErrInvalidDateFormat = errors.New("invalid civil date/time format")

var (
	standardZone = time.FixedZone("PST", -8*60*60)
	daylightZone = time.FixedZone("PDT", -7*60*60)
)

// CivilDateTime is a naive wall-clock reading with no timezone attached.
type CivilDateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// ParseCivil parses a civil date/time string into naive components.
//
// Accepted shapes:
//   - bare calendar date: "2026-02-12"
//   - date-time: "2026-02-12T06:30", "2026-02-12 06:30:00"
//     ('T' or a single space as separator, seconds optional)
func ParseCivil(s string) (CivilDateTime, error) {
	s = strings.TrimSpace(s)
	// Normalize the separator so only the 'T' form needs handling.
	s = strings.Replace(s, " ", "T", 1)

	var c CivilDateTime
	var layout string
	switch {
	case len(s) == len("2006-01-02"):
		layout = "2006-01-02"
	case len(s) == len("2006-01-02T15:04"):
		layout = "2006-01-02T15:04"
	case len(s) == len("2006-01-02T15:04:05"):
		layout = "2006-01-02T15:04:05"
	default:
		return c, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return c, fmt.Errorf("%w: %q", ErrInvalidDateFormat, s)
	}

	c.Year, c.Month, c.Day = t.Date()
	c.Hour, c.Minute, c.Second = t.Clock()
	return c, nil
}

// naive projects the components onto UTC purely for ordering comparisons.
// The resulting time is not an instant; it is only comparable against
// other naive projections.
func (c CivilDateTime) naive() time.Time {
	return time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, time.UTC)
}

// springForward returns the naive local time DST begins for the year:
// 02:00 on the second Sunday of March.
func springForward(year int) time.Time {
	march1 := time.Date(year, time.March, 1, 2, 0, 0, 0, time.UTC)
	firstSunday := (7 - int(march1.Weekday())) % 7
	return march1.AddDate(0, 0, firstSunday+7)
}

// fallBack returns the naive local time DST ends for the year:
// 02:00 on the first Sunday of November.
func fallBack(year int) time.Time {
	nov1 := time.Date(year, time.November, 1, 2, 0, 0, 0, time.UTC)
	firstSunday := (7 - int(nov1.Weekday())) % 7
	return nov1.AddDate(0, 0, firstSunday)
}

// IsDaylightSaving reports whether the given naive wall-clock reading
// falls inside the daylight-saving window of its year: on or after the
// spring-forward boundary and strictly before the fall-back boundary.
func IsDaylightSaving(c CivilDateTime) bool {
	n := c.naive()
	return !n.Before(springForward(c.Year)) && n.Before(fallBack(c.Year))
}

// ResolveInstant converts a civil date/time string into an absolute
// instant by selecting the fixed offset the wall clock was using: PDT
// when the naive components fall inside the DST window, PST otherwise.
func ResolveInstant(s string) (time.Time, error) {
	c, err := ParseCivil(s)
	if err != nil {
		return time.Time{}, err
	}
	return c.In(zoneFor(c)), nil
}

// In materializes the naive components in the given zone.
func (c CivilDateTime) In(loc *time.Location) time.Time {
	return time.Date(c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second, 0, loc)
}

// CivilDate returns the Pacific civil calendar date (YYYY-MM-DD) of an
// instant. The offset is chosen by evaluating the DST rule against a
// standard-time projection of the instant, the same heuristic used for
// the forward direction.
func CivilDate(t time.Time) string {
	approx := t.In(standardZone)
	c := CivilDateTime{}
	c.Year, c.Month, c.Day = approx.Date()
	c.Hour, c.Minute, c.Second = approx.Clock()
	return t.In(zoneFor(c)).Format("2006-01-02")
}

func zoneFor(c CivilDateTime) *time.Location {
	if IsDaylightSaving(c) {
		return daylightZone
	}
	return standardZone
}
