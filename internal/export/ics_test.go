package export

import (
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinnedEncoder returns an encoder with a fixed clock and UID so the
// output is fully deterministic.
func pinnedEncoder() *ICSEncoder {
	enc := NewICSEncoder()
	enc.Now = func() time.Time {
		return time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)
	}
	enc.NewUID = func(now time.Time) string {
		return FormatCompactUTC(now) + "-test@" + "www.overland-eastbay.com"
	}
	return enc
}

func TestICSEncode(t *testing.T) {
	out := pinnedEncoder().Encode(sampleEvent())

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))

	for _, line := range []string{
		"VERSION:2.0",
		"PRODID:-//Overland East Bay//Website//EN",
		"BEGIN:VEVENT",
		"UID:20260115T103000Z-test@www.overland-eastbay.com",
		"DTSTAMP:20260115T103000Z",
		"DTSTART:20260212T080000Z",
		"DTEND:20260216T075900Z",
		"SUMMARY:Death Valley Trip",
		"STATUS:CONFIRMED",
		"END:VEVENT",
	} {
		assert.Contains(t, out, line+"\r\n")
	}
}

func TestICSEncodeEscapesDescriptionNewlines(t *testing.T) {
	ev := sampleEvent()
	ev.Description = "Line one\nLine two"

	out := pinnedEncoder().Encode(ev)

	assert.Contains(t, out, `DESCRIPTION:Line one\nLine two`+"\r\n")
	assert.NotContains(t, out, "DESCRIPTION:Line one\nLine two")
	// Exactly one level of escaping: no doubled backslashes.
	assert.NotContains(t, out, `\\n`)
}

func TestICSEncodeEscapesStructuralCharacters(t *testing.T) {
	ev := sampleEvent()
	ev.Location = "Furnace Creek, CA; gate 2"

	out := pinnedEncoder().Encode(ev)
	assert.Contains(t, out, `LOCATION:Furnace Creek\, CA\; gate 2`+"\r\n")
	assert.NotContains(t, out, `\\,`)
}

func TestICSEncodeUsesCRLFThroughout(t *testing.T) {
	out := pinnedEncoder().Encode(sampleEvent())

	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		assert.False(t, strings.ContainsAny(line, "\r\n"), "bare CR or LF in line %q", line)
	}
}

func TestICSEncodeRoundTripsThroughParser(t *testing.T) {
	ev := sampleEvent()
	out := pinnedEncoder().Encode(ev)

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(ev.Start))

	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(ev.End))
}

func TestICSEncodeGeneratedUIDShape(t *testing.T) {
	enc := NewICSEncoder()
	out := enc.Encode(sampleEvent())

	var uid string
	for _, line := range strings.Split(out, "\r\n") {
		if strings.HasPrefix(line, "UID:") {
			uid = strings.TrimPrefix(line, "UID:")
			break
		}
	}
	require.NotEmpty(t, uid)
	assert.True(t, strings.HasSuffix(uid, "@www.overland-eastbay.com"), "uid %q", uid)

	// Two encodes of the same event must not share an identifier.
	other := enc.Encode(sampleEvent())
	assert.NotEqual(t, out, other)
}
