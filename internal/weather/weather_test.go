package weather

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "github.com/overland-eastbay/ebosite/internal/log"
)

func TestMain(m *testing.M) {
	applog.SetOutput(io.Discard)
	m.Run()
}

const forecastFixture = `{
	"latitude": 36.4622,
	"longitude": -116.8675,
	"current": {
		"time": "2026-02-12T06:00",
		"temperature_2m": 11.4,
		"relative_humidity_2m": 31,
		"weather_code": 2,
		"wind_speed_10m": 14.2,
		"wind_direction_10m": 290
	},
	"daily": {
		"time": ["2026-02-12", "2026-02-13"],
		"temperature_2m_max": [21.1, 19.8],
		"temperature_2m_min": [7.2, 6.5],
		"precipitation_probability_max": [0, 10],
		"weather_code": [0, 61]
	}
}`

func newFixtureServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/v1/forecast", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "36.4622", q.Get("latitude"))
		assert.Equal(t, "America/Los_Angeles", q.Get("timezone"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, forecastFixture)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestForecast(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	c := NewClient(time.Minute)
	c.SetBaseURL(srv.URL)

	report, err := c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)

	assert.Equal(t, 11.4, report.Current.Temperature)
	assert.Equal(t, "Partly cloudy", report.Summary)
	assert.Equal(t, "WNW", report.Compass)

	require.Len(t, report.Daily, 2)
	assert.Equal(t, "2026-02-12", report.Daily[0].Date)
	assert.Equal(t, 21.1, report.Daily[0].TempMax)
	assert.Equal(t, "Clear", report.Daily[0].Summary)
	assert.Equal(t, "Light rain", report.Daily[1].Summary)
}

func TestForecastServedFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	c := NewClient(time.Minute)
	c.SetBaseURL(srv.URL)

	_, err := c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)
	_, err = c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
}

func TestForecastFallsBackToStaleOnError(t *testing.T) {
	var hits atomic.Int32
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		io.WriteString(w, forecastFixture)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(time.Nanosecond) // force immediate staleness
	c.SetBaseURL(srv.URL)

	first, err := c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)

	failing.Store(true)
	time.Sleep(time.Millisecond)

	second, err := c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, hits.Load(), int32(2))
}

func TestRefreshAll(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	c := NewClient(time.Hour)
	c.SetBaseURL(srv.URL)

	_, err := c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)

	c.RefreshAll(context.Background())
	assert.Equal(t, int32(2), hits.Load())

	// The refreshed entry stays servable without another fetch.
	_, err = c.Forecast(context.Background(), 36.4622, -116.8675)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDegToCompass(t *testing.T) {
	tests := []struct {
		deg  float64
		want string
	}{
		{0, "N"},
		{45, "NE"},
		{90, "E"},
		{180, "S"},
		{270, "W"},
		{290, "WNW"},
		{359, "N"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DegToCompass(tt.deg), "deg %v", tt.deg)
	}
}

func TestCodeText(t *testing.T) {
	assert.Equal(t, "Clear", CodeText(0))
	assert.Equal(t, "Thunderstorm", CodeText(95))
	assert.Equal(t, "Unknown", CodeText(42))
}
