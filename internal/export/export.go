// Package export serializes a resolved event into the two external
// calendar formats the site offers: a Google Calendar deep link and a
// downloadable single-event iCalendar file. Both encoders read the same
// pair of absolute instants, so the exported moment is identical no
// matter which button a visitor picks.
package export

import (
	"regexp"
	"time"
)

const (
	// prodID identifies the site as the generator of exported files.
	prodID = "-//Overland East Bay//Website//EN"

	// uidDomain is the fixed suffix of generated event identifiers.
	uidDomain = "www.overland-eastbay.com"

	compactUTCLayout = "20060102T150405Z"
)

// FormatCompactUTC renders an instant in the compact UTC form shared by
// the interchange file and the deep link's dates parameter.
func FormatCompactUTC(t time.Time) string {
	return t.UTC().Format(compactUTCLayout)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DownloadFilename derives the interchange-file download name from an
// event title. Every non-alphanumeric rune is replaced, not just the
// first occurrence.
func DownloadFilename(title string) string {
	name := nonAlphanumeric.ReplaceAllString(title, "_")
	if name == "" {
		name = "event"
	}
	return name + ".ics"
}
