package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/overland-eastbay/ebosite/internal/event"
)

// ICSEncoder produces single-event iCalendar documents. The zero value
// is not usable; construct with NewICSEncoder. Now and NewUID exist so
// tests can pin the otherwise non-deterministic DTSTAMP and UID.
type ICSEncoder struct {
	Now    func() time.Time
	NewUID func(now time.Time) string
}

// NewICSEncoder returns an encoder using the wall clock and random UIDs.
func NewICSEncoder() *ICSEncoder {
	return &ICSEncoder{
		Now:    time.Now,
		NewUID: newUID,
	}
}

// newUID builds an identifier from the encoding instant, a random
// component and the site domain. Collision probability is good enough
// for a user-initiated one-off download; nothing stores these. The
// random part is truncated to keep the UID line under the 75-octet fold
// threshold.
func newUID(now time.Time) string {
	return fmt.Sprintf("%s-%s@%s", FormatCompactUTC(now), uuid.NewString()[:8], uidDomain)
}

// Encode serializes the event as a VCALENDAR document with one VEVENT.
//
// TEXT property values are passed to the setters raw; the library
// escapes them at serialize time, so user-authored newlines in the
// description come out as the \n escape sequence rather than raw line
// breaks. Lines are CRLF-delimited per RFC 5545.
func (e *ICSEncoder) Encode(ev event.Event) string {
	now := e.Now()

	cal := ics.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId(prodID)

	ve := cal.AddEvent(e.NewUID(now))
	ve.SetDtStampTime(now)
	ve.SetStartAt(ev.Start)
	ve.SetEndAt(ev.End)
	ve.SetSummary(ev.Title)
	ve.SetDescription(ev.Description)
	ve.SetLocation(ev.Location)
	ve.SetStatus(ics.ObjectStatusConfirmed)

	return cal.Serialize(ics.WithNewLineWindows)
}
