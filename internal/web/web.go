// Package web exposes the site API: trips and RSVPs, calendar-export
// actions for the page widgets, destination weather, and the trip RSS
// feed. Read endpoints are open; admin mutations sit behind optional
// HTTP Basic Auth.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/overland-eastbay/ebosite/internal/config"
	"github.com/overland-eastbay/ebosite/internal/event"
	applog "github.com/overland-eastbay/ebosite/internal/log"
	"github.com/overland-eastbay/ebosite/internal/pacific"
	"github.com/overland-eastbay/ebosite/internal/store"
	"github.com/overland-eastbay/ebosite/internal/weather"
	"github.com/overland-eastbay/ebosite/internal/widget"
)

// Server provides the HTTP API for the site.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	weather *weather.Client
	driver  *widget.Driver
	mux     *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, st *store.Store, wc *weather.Client) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		weather: wc,
		driver:  widget.NewDriver(),
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/trips", s.handleListTrips)
	s.mux.Handle("POST /api/trips", s.adminOnly(http.HandlerFunc(s.handleCreateTrip)))
	s.mux.HandleFunc("GET /api/trips/{id}", s.handleGetTrip)
	s.mux.Handle("DELETE /api/trips/{id}", s.adminOnly(http.HandlerFunc(s.handleDeleteTrip)))
	s.mux.HandleFunc("GET /api/trips/{id}/rsvps", s.handleRSVPSummary)
	s.mux.HandleFunc("POST /api/trips/{id}/rsvp", s.handleSetRSVP)
	s.mux.HandleFunc("GET /api/trips/{id}/calendar.ics", s.handleTripICS)

	s.mux.HandleFunc("GET /api/calendar/actions", s.handleCalendarActions)
	s.mux.HandleFunc("GET /api/calendar/ics", s.handleCalendarICS)
	s.mux.HandleFunc("POST /api/calendar/widgets", s.handleCalendarWidgets)

	s.mux.HandleFunc("GET /api/weather", s.handleWeather)
	s.mux.HandleFunc("GET /feed.xml", s.handleFeed)

	if s.cfg.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
}

// adminOnly wraps a handler with HTTP Basic Auth when credentials are
// configured. Without credentials the admin surface is disabled rather
// than open.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ba := s.cfg.BasicAuth
		if ba == nil || ba.Username == "" || ba.Password == "" {
			writeError(w, http.StatusForbidden, "admin endpoints are not configured")
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !secureCompare(p, ba.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ebosite", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// calendarActionsDTO is the per-widget export surface: the eager deep
// link plus the path of the lazy ics download.
type calendarActionsDTO struct {
	GoogleCalendarURL string `json:"googleCalendarUrl"`
	ICSPath           string `json:"icsPath"`
	Filename          string `json:"filename"`
	StartUTC          string `json:"startUtc"`
	EndUTC            string `json:"endUtc"`
}

// tripDTO is a trip plus its calendar actions. Calendar is nil when the
// trip's dates fail to resolve; the trip still renders, just without
// calendar buttons.
type tripDTO struct {
	*store.Trip
	Calendar *calendarActionsDTO `json:"calendar,omitempty"`
}

func (s *Server) tripToDTO(t *store.Trip) tripDTO {
	dto := tripDTO{Trip: t}

	action, err := s.driver.Render(widget.Definition{
		Title:       t.Name,
		Start:       t.Start,
		End:         t.End,
		Location:    t.Location,
		Description: t.Description,
	})
	if err != nil {
		applog.Error("trip calendar resolution failed", err, "trip_id", t.ID)
		return dto
	}
	if action == nil {
		return dto
	}

	dto.Calendar = &calendarActionsDTO{
		GoogleCalendarURL: action.GoogleURL,
		ICSPath:           "/api/trips/" + strconv.FormatInt(t.ID, 10) + "/calendar.ics",
		Filename:          action.Filename,
		StartUTC:          action.Event.Start.UTC().Format(time.RFC3339),
		EndUTC:            action.Event.End.UTC().Format(time.RFC3339),
	}
	return dto
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.store.ListUpcomingTrips(pacific.CivilDate(time.Now()))
	if err != nil {
		applog.Error("list trips failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list trips")
		return
	}

	dtos := make([]tripDTO, 0, len(trips))
	for _, t := range trips {
		dtos = append(dtos, s.tripToDTO(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": dtos})
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var t store.Trip
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Reject unresolvable dates up front so a typo never produces a trip
	// without calendar actions.
	if _, err := event.Normalize(t.Name, t.Start, t.End, t.Location, t.Description); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid trip dates: "+err.Error())
		return
	}

	if err := s.store.CreateTrip(&t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applog.Info("trip created", "trip_id", t.ID, "name", t.Name)
	writeJSON(w, http.StatusCreated, s.tripToDTO(&t))
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tripFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.tripToDTO(t))
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteTrip(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		applog.Error("delete trip failed", err, "trip_id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete trip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRSVPSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	summary, err := s.store.GetRSVPSummary(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		applog.Error("rsvp summary failed", err, "trip_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load rsvps")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rsvpSummary": summary})
}

type rsvpRequest struct {
	MemberName string `json:"memberName"`
	Response   string `json:"response"`
}

func (s *Server) handleSetRSVP(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	var req rsvpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.store.SetRSVP(id, req.MemberName, req.Response); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTripICS(w http.ResponseWriter, r *http.Request) {
	t, ok := s.tripFromPath(w, r)
	if !ok {
		return
	}

	action, err := s.driver.Render(widget.Definition{
		Title:       t.Name,
		Start:       t.Start,
		End:         t.End,
		Location:    t.Location,
		Description: t.Description,
	})
	if err != nil {
		applog.Error("trip ics encode failed", err, "trip_id", t.ID)
		writeError(w, http.StatusUnprocessableEntity, "trip dates cannot be resolved")
		return
	}
	if action == nil {
		writeError(w, http.StatusUnprocessableEntity, "trip is missing required fields")
		return
	}

	serveICS(w, action)
}

// widgetQueryDefinition reads the widget data attributes from URL query
// parameters.
func widgetQueryDefinition(r *http.Request) widget.Definition {
	q := r.URL.Query()
	return widget.Definition{
		Title:       q.Get("title"),
		Start:       q.Get("start"),
		End:         q.Get("end"),
		Location:    q.Get("location"),
		Description: q.Get("description"),
	}
}

func (s *Server) handleCalendarActions(w http.ResponseWriter, r *http.Request) {
	d := widgetQueryDefinition(r)

	action, err := s.driver.Render(d)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date/time: "+err.Error())
		return
	}
	if action == nil {
		writeError(w, http.StatusBadRequest, "title and start are required")
		return
	}

	writeJSON(w, http.StatusOK, calendarActionsDTO{
		GoogleCalendarURL: action.GoogleURL,
		ICSPath:           icsPathFor(d),
		Filename:          action.Filename,
		StartUTC:          action.Event.Start.UTC().Format(time.RFC3339),
		EndUTC:            action.Event.End.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request) {
	d := widgetQueryDefinition(r)

	action, err := s.driver.Render(d)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date/time: "+err.Error())
		return
	}
	if action == nil {
		writeError(w, http.StatusBadRequest, "title and start are required")
		return
	}

	serveICS(w, action)
}

// widgetResultDTO is one entry of the batch widget response. Failed or
// skipped widgets report their state without affecting siblings.
type widgetResultDTO struct {
	Index             int    `json:"index"`
	Skipped           bool   `json:"skipped,omitempty"`
	Error             string `json:"error,omitempty"`
	GoogleCalendarURL string `json:"googleCalendarUrl,omitempty"`
	ICSPath           string `json:"icsPath,omitempty"`
	Filename          string `json:"filename,omitempty"`
}

func (s *Server) handleCalendarWidgets(w http.ResponseWriter, r *http.Request) {
	var defs []widget.Definition
	if err := json.NewDecoder(r.Body).Decode(&defs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	results := s.driver.RenderAll(defs)

	dtos := make([]widgetResultDTO, 0, len(results))
	for _, res := range results {
		dto := widgetResultDTO{Index: res.Index}
		switch {
		case res.Err != nil:
			dto.Error = res.Err.Error()
		case res.Action == nil:
			dto.Skipped = true
		default:
			dto.GoogleCalendarURL = res.Action.GoogleURL
			dto.Filename = res.Action.Filename
			dto.ICSPath = icsPathFor(defs[res.Index])
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{"widgets": dtos})
}

func icsPathFor(d widget.Definition) string {
	q := url.Values{}
	q.Set("title", d.Title)
	q.Set("start", d.Start)
	if d.End != "" {
		q.Set("end", d.End)
	}
	if d.Location != "" {
		q.Set("location", d.Location)
	}
	if d.Description != "" {
		q.Set("description", d.Description)
	}
	return "/api/calendar/ics?" + q.Encode()
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required numeric parameters")
		return
	}

	report, err := s.weather.Forecast(r.Context(), lat, lon)
	if err != nil {
		applog.Error("weather fetch failed", err, "lat", lat, "lon", lon)
		writeError(w, http.StatusBadGateway, "failed to fetch forecast")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// serveICS writes the interchange file as an attachment download. The
// document is encoded here, at click time, not ahead of it.
func serveICS(w http.ResponseWriter, action *widget.Action) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+action.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(action.ICS()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func tripID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trip id")
		return 0, false
	}
	return id, true
}

func (s *Server) tripFromPath(w http.ResponseWriter, r *http.Request) (*store.Trip, bool) {
	id, ok := tripID(w, r)
	if !ok {
		return nil, false
	}
	t, err := s.store.GetTrip(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return nil, false
		}
		applog.Error("get trip failed", err, "trip_id", id)
		writeError(w, http.StatusInternalServerError, "failed to load trip")
		return nil, false
	}
	return t, true
}
