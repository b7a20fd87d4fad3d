package export

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overland-eastbay/ebosite/internal/event"
)

func sampleEvent() event.Event {
	return event.Event{
		Title:       "Death Valley Trip",
		Description: "Meet at the gate.\nBring water & snacks",
		Location:    "Furnace Creek, CA",
		Start:       time.Date(2026, time.February, 12, 8, 0, 0, 0, time.UTC),
		End:         time.Date(2026, time.February, 16, 7, 59, 0, 0, time.UTC),
	}
}

func TestGoogleCalendarURL(t *testing.T) {
	raw := GoogleCalendarURL(sampleEvent())

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "calendar.google.com", u.Host)
	assert.Equal(t, "/calendar/render", u.Path)

	q := u.Query()
	assert.Equal(t, "TEMPLATE", q.Get("action"))
	assert.Equal(t, "Death Valley Trip", q.Get("text"))
	assert.Equal(t, "20260212T080000Z/20260216T075900Z", q.Get("dates"))
	assert.Equal(t, "Meet at the gate.\nBring water & snacks", q.Get("details"))
	assert.Equal(t, "Furnace Creek, CA", q.Get("location"))
}

func TestGoogleCalendarURLEncodesUntrustedText(t *testing.T) {
	ev := sampleEvent()
	ev.Title = `a&b=c?d "quoted"`

	raw := GoogleCalendarURL(ev)
	assert.NotContains(t, raw, `"`)
	assert.NotContains(t, raw, " ")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, u.Query().Get("text"))
}

func TestGoogleCalendarURLIdempotent(t *testing.T) {
	ev := sampleEvent()
	assert.Equal(t, GoogleCalendarURL(ev), GoogleCalendarURL(ev))
}

func TestGoogleCalendarURLDatesInjective(t *testing.T) {
	base := sampleEvent()

	shifted := base
	shifted.Start = base.Start.Add(time.Second)

	shorter := base
	shorter.End = base.End.Add(-time.Minute)

	dates := func(ev event.Event) string {
		u, err := url.Parse(GoogleCalendarURL(ev))
		require.NoError(t, err)
		return u.Query().Get("dates")
	}

	assert.NotEqual(t, dates(base), dates(shifted))
	assert.NotEqual(t, dates(base), dates(shorter))
	assert.NotEqual(t, dates(shifted), dates(shorter))
}

func TestFormatCompactUTC(t *testing.T) {
	pdt := time.FixedZone("PDT", -7*60*60)
	in := time.Date(2026, time.July, 4, 12, 0, 0, 0, pdt)
	assert.Equal(t, "20260704T190000Z", FormatCompactUTC(in))
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Death Valley Trip", "Death_Valley_Trip.ics"},
		{"Trip: Death Valley!", "Trip__Death_Valley_.ics"},
		{"100% fun", "100__fun.ics"},
		{"", "event.ics"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DownloadFilename(tt.title), "title %q", tt.title)
	}
}
