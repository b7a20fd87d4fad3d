// Package weather hydrates the trip-weather widgets from the Open-Meteo
// forecast API. Forecasts are cached per destination coordinate with a
// TTL; a background cron job re-fetches every known destination so page
// loads almost always hit the cache.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	applog "github.com/overland-eastbay/ebosite/internal/log"
)

const defaultBaseURL = "https://api.open-meteo.com"

// codeText maps WMO weather codes to short display text.
var codeText = map[int]string{
	0:  "Clear",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Heavy drizzle",
	61: "Light rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Light snow",
	73: "Snow",
	75: "Heavy snow",
	80: "Rain showers",
	81: "Rain showers",
	82: "Violent rain showers",
	95: "Thunderstorm",
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CodeText returns display text for a WMO weather code.
func CodeText(code int) string {
	if s, ok := codeText[code]; ok {
		return s
	}
	return "Unknown"
}

// DegToCompass converts wind direction degrees to a 16-point compass
// label.
func DegToCompass(deg float64) string {
	if deg < 0 {
		deg = 0
	}
	idx := int(deg/22.5+0.5) % 16
	return compassPoints[idx]
}

// Current is the current-conditions block of a report.
type Current struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature_2m"`
	Humidity      float64 `json:"relative_humidity_2m"`
	WeatherCode   int     `json:"weather_code"`
	WindSpeed     float64 `json:"wind_speed_10m"`
	WindDirection float64 `json:"wind_direction_10m"`
}

// Day is one day of the aggregated daily forecast.
type Day struct {
	Date              string  `json:"date"`
	TempMax           float64 `json:"tempMax"`
	TempMin           float64 `json:"tempMin"`
	PrecipProbability float64 `json:"precipProbability"`
	WeatherCode       int     `json:"weatherCode"`
	Summary           string  `json:"summary"`
}

// Report is a destination forecast as served to the widgets.
type Report struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Current   Current   `json:"current"`
	Summary   string    `json:"summary"`
	Compass   string    `json:"windCompass"`
	Daily     []Day     `json:"daily"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// apiResponse mirrors the Open-Meteo JSON layout (parallel daily arrays).
type apiResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   Current `json:"current"`
	Daily     struct {
		Time              []string  `json:"time"`
		TempMax           []float64 `json:"temperature_2m_max"`
		TempMin           []float64 `json:"temperature_2m_min"`
		PrecipProbability []float64 `json:"precipitation_probability_max"`
		WeatherCode       []int     `json:"weather_code"`
	} `json:"daily"`
}

type cacheEntry struct {
	lat, lon  float64
	report    *Report
	fetchedAt time.Time
}

// Client fetches and caches forecasts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

// NewClient returns a Client whose cached forecasts stay fresh for ttl.
func NewClient(ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		ttl:        ttl,
		cache:      make(map[string]*cacheEntry),
	}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

func coordKey(lat, lon float64) string {
	// Four decimals ≈ 11m, plenty for a campsite forecast.
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Forecast returns the forecast for a coordinate, from cache when fresh.
// A failed refresh falls back to a stale cached report rather than
// erroring, mirroring how the widget would keep showing old data.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Report, error) {
	key := coordKey(lat, lon)

	c.mu.RLock()
	entry := c.cache[key]
	c.mu.RUnlock()

	if entry != nil && time.Since(entry.fetchedAt) < c.ttl {
		return entry.report, nil
	}

	report, err := c.fetch(ctx, lat, lon)
	if err != nil {
		if entry != nil {
			applog.Error("weather refresh failed, serving stale forecast", err, "coord", key)
			return entry.report, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = &cacheEntry{lat: lat, lon: lon, report: report, fetchedAt: report.FetchedAt}
	c.mu.Unlock()

	return report, nil
}

// RefreshAll re-fetches every destination seen so far. Called from the
// cron scheduler; individual failures are logged and skipped.
func (c *Client) RefreshAll(ctx context.Context) {
	c.mu.RLock()
	entries := make([]*cacheEntry, 0, len(c.cache))
	for _, e := range c.cache {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	for _, e := range entries {
		report, err := c.fetch(ctx, e.lat, e.lon)
		if err != nil {
			applog.Error("weather background refresh failed", err, "coord", coordKey(e.lat, e.lon))
			continue
		}
		c.mu.Lock()
		c.cache[coordKey(e.lat, e.lon)] = &cacheEntry{
			lat: e.lat, lon: e.lon, report: report, fetchedAt: report.FetchedAt,
		}
		c.mu.Unlock()
	}

	applog.Debug("weather background refresh completed", "destinations", len(entries))
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*Report, error) {
	url := fmt.Sprintf(
		"%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
			"&current=temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m,wind_direction_10m"+
			"&daily=temperature_2m_max,temperature_2m_min,precipitation_probability_max,weather_code"+
			"&timezone=America%%2FLos_Angeles",
		c.baseURL, lat, lon,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("open-meteo: " + resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}

	report := &Report{
		Latitude:  parsed.Latitude,
		Longitude: parsed.Longitude,
		Current:   parsed.Current,
		Summary:   CodeText(parsed.Current.WeatherCode),
		Compass:   DegToCompass(parsed.Current.WindDirection),
		FetchedAt: time.Now(),
	}

	for i, date := range parsed.Daily.Time {
		day := Day{Date: date}
		if i < len(parsed.Daily.TempMax) {
			day.TempMax = parsed.Daily.TempMax[i]
		}
		if i < len(parsed.Daily.TempMin) {
			day.TempMin = parsed.Daily.TempMin[i]
		}
		if i < len(parsed.Daily.PrecipProbability) {
			day.PrecipProbability = parsed.Daily.PrecipProbability[i]
		}
		if i < len(parsed.Daily.WeatherCode) {
			day.WeatherCode = parsed.Daily.WeatherCode[i]
			day.Summary = CodeText(day.WeatherCode)
		}
		report.Daily = append(report.Daily, day)
	}

	return report, nil
}
