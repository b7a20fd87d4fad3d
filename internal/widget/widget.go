// Package widget is the server-side counterpart of the page's
// calendar-widget elements. A Definition mirrors the data-* attributes a
// page author writes; the driver resolves each one independently and
// attaches the two export actions, so one broken widget never takes down
// the rest of the page.
package widget

import (
	"github.com/overland-eastbay/ebosite/internal/event"
	"github.com/overland-eastbay/ebosite/internal/export"
	applog "github.com/overland-eastbay/ebosite/internal/log"
)

// Definition carries the raw widget attributes as authored.
type Definition struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Ready reports whether the widget has the attributes required for
// rendering. A widget without them is simply not ready yet (dynamic
// content may still be loading); it is skipped, not failed.
func (d Definition) Ready() bool {
	return d.Title != "" && d.Start != ""
}

// Action is a fully resolved widget: the canonical event plus the eager
// deep link. The interchange file is intentionally not pre-rendered; it
// is produced on demand (ICS method) the way the download button only
// builds the file on click.
type Action struct {
	Event     event.Event
	GoogleURL string
	Filename  string

	enc *export.ICSEncoder
}

// ICS encodes the interchange file for this action. Each call generates
// a fresh document (and a fresh UID).
func (a *Action) ICS() string {
	return a.enc.Encode(a.Event)
}

// Result pairs a definition's position in the input with its outcome.
// Exactly one of Action and Err is set; both are nil for a skipped
// (not-ready) definition.
type Result struct {
	Index  int
	Action *Action
	Err    error
}

// Driver resolves widget definitions into actions.
type Driver struct {
	enc *export.ICSEncoder
}

func NewDriver() *Driver {
	return &Driver{enc: export.NewICSEncoder()}
}

// Render resolves a single definition. It returns (nil, nil) when the
// definition is not ready.
func (dr *Driver) Render(d Definition) (*Action, error) {
	if !d.Ready() {
		return nil, nil
	}

	ev, err := event.Normalize(d.Title, d.Start, d.End, d.Location, d.Description)
	if err != nil {
		return nil, err
	}

	return &Action{
		Event:     ev,
		GoogleURL: export.GoogleCalendarURL(ev),
		Filename:  export.DownloadFilename(ev.Title),
		enc:       dr.enc,
	}, nil
}

// RenderAll processes every definition in isolation. Failures are logged
// and recorded per entry; they never abort the remaining widgets, and no
// ordering between entries is assumed beyond the reported index.
func (dr *Driver) RenderAll(defs []Definition) []Result {
	results := make([]Result, 0, len(defs))
	for i, d := range defs {
		action, err := dr.Render(d)
		if err != nil {
			applog.Error("calendar widget resolution failed", err, "index", i, "title", d.Title)
		}
		results = append(results, Result{Index: i, Action: action, Err: err})
	}
	return results
}
