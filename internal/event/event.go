// Package event turns the raw widget attributes (title, civil start/end
// strings, location, description) into a single canonical form with
// explicit absolute bounds. All-day inputs are resolved up front rather
// than carrying a floating-date flag through the encoders.
package event

import (
	"errors"
	"strings"
	"time"

	"github.com/overland-eastbay/ebosite/internal/pacific"
)

// ErrEndBeforeStart is returned when the resolved end instant precedes
// the resolved start instant.
var ErrEndBeforeStart = errors.New("event end precedes start")

// Event is the canonical resolved event. Start and End are absolute
// instants; there is no residual all-day marker.
type Event struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// IsAllDay reports whether a raw start value is a bare calendar date
// (YYYY-MM-DD) rather than a date-time.
func IsAllDay(rawStart string) bool {
	return len(rawStart) == 10 && !strings.ContainsAny(rawStart, "T ")
}

// Normalize resolves raw widget attributes into an Event.
//
// An empty rawEnd defaults to rawStart. For all-day input the start date
// becomes 00:00:00 and the end date 23:59:00 Pacific; the end date is
// taken as inclusive, exactly as supplied. Both bounds resolve through
// pacific.ResolveInstant, so a malformed date surfaces as
// pacific.ErrInvalidDateFormat.
func Normalize(title, rawStart, rawEnd, location, description string) (Event, error) {
	rawStart = strings.TrimSpace(rawStart)
	rawEnd = strings.TrimSpace(rawEnd)
	if rawEnd == "" {
		rawEnd = rawStart
	}

	var start, end time.Time
	var err error

	if IsAllDay(rawStart) {
		// The end date is inclusive: start 00:00 Pacific on the first
		// day, end one minute before midnight on the last day.
		start, err = pacific.ResolveInstant(rawStart + "T00:00:00")
		if err != nil {
			return Event{}, err
		}
		end, err = pacific.ResolveInstant(rawEnd + "T23:59:00")
		if err != nil {
			return Event{}, err
		}
	} else {
		start, err = pacific.ResolveInstant(rawStart)
		if err != nil {
			return Event{}, err
		}
		end, err = pacific.ResolveInstant(rawEnd)
		if err != nil {
			return Event{}, err
		}
	}

	if end.Before(start) {
		return Event{}, ErrEndBeforeStart
	}

	return Event{
		Title:       title,
		Description: description,
		Location:    location,
		Start:       start,
		End:         end,
	}, nil
}
