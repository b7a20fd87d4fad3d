package export

import (
	"net/url"

	"github.com/overland-eastbay/ebosite/internal/event"
)

// googleCalendarBase is the event-creation endpoint of the Google
// Calendar web application.
const googleCalendarBase = "https://calendar.google.com/calendar/render"

// GoogleCalendarURL builds a deep link that opens Google Calendar with
// the event pre-filled. The transformation is pure: the same event
// always yields a byte-identical URL, and every parameter value is
// percent-encoded as untrusted free text.
func GoogleCalendarURL(ev event.Event) string {
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Title)
	q.Set("dates", FormatCompactUTC(ev.Start)+"/"+FormatCompactUTC(ev.End))
	q.Set("details", ev.Description)
	q.Set("location", ev.Location)
	return googleCalendarBase + "?" + q.Encode()
}
