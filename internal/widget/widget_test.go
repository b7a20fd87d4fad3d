package widget

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/overland-eastbay/ebosite/internal/log"
	"github.com/overland-eastbay/ebosite/internal/pacific"
)

func TestMain(m *testing.M) {
	applog.SetOutput(io.Discard)
	m.Run()
}

func TestRenderProducesBothActions(t *testing.T) {
	dr := NewDriver()

	action, err := dr.Render(Definition{
		Title:    "Death Valley Trip",
		Start:    "2026-02-12",
		End:      "2026-02-16",
		Location: "Furnace Creek, CA",
	})
	require.NoError(t, err)
	require.NotNil(t, action)

	assert.Contains(t, action.GoogleURL, "action=TEMPLATE")
	assert.Contains(t, action.GoogleURL, "20260212T080000Z%2F20260217T075900Z")
	assert.Equal(t, "Death_Valley_Trip.ics", action.Filename)

	ics := action.ICS()
	assert.Contains(t, ics, "DTSTART:20260212T080000Z\r\n")
	assert.Contains(t, ics, "DTEND:20260217T075900Z\r\n")
}

func TestRenderSkipsNotReadyDefinitions(t *testing.T) {
	dr := NewDriver()

	for _, d := range []Definition{
		{},
		{Title: "No start yet"},
		{Start: "2026-02-12"},
	} {
		action, err := dr.Render(d)
		assert.NoError(t, err)
		assert.Nil(t, action)
	}
}

func TestRenderAllIsolatesFailures(t *testing.T) {
	dr := NewDriver()

	results := dr.RenderAll([]Definition{
		{Title: "Good", Start: "2026-02-12T06:30:00"},
		{Title: "Broken", Start: "02/12/2026"},
		{Title: "Also good", Start: "2026-07-04"},
		{Start: "2026-02-12"}, // not ready: no title
	})
	require.Len(t, results, 4)

	assert.NotNil(t, results[0].Action)
	assert.NoError(t, results[0].Err)

	assert.Nil(t, results[1].Action)
	assert.ErrorIs(t, results[1].Err, pacific.ErrInvalidDateFormat)

	assert.NotNil(t, results[2].Action)
	assert.NoError(t, results[2].Err)

	assert.Nil(t, results[3].Action)
	assert.NoError(t, results[3].Err)
}

func TestActionICSIsFreshPerCall(t *testing.T) {
	dr := NewDriver()

	action, err := dr.Render(Definition{Title: "Meet", Start: "2026-02-12T06:30:00"})
	require.NoError(t, err)

	first := action.ICS()
	second := action.ICS()

	uid := func(doc string) string {
		for _, line := range strings.Split(doc, "\r\n") {
			if strings.HasPrefix(line, "UID:") {
				return line
			}
		}
		return ""
	}

	require.NotEmpty(t, uid(first))
	assert.NotEqual(t, uid(first), uid(second))
}
