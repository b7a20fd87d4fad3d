package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/feeds"

	applog "github.com/overland-eastbay/ebosite/internal/log"
	"github.com/overland-eastbay/ebosite/internal/pacific"
)

// handleFeed serves an RSS feed of upcoming trips. Item timestamps are
// the resolved start instants, so feed readers show the correct moment
// regardless of their own timezone.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	trips, err := s.store.ListUpcomingTrips(pacific.CivilDate(time.Now()))
	if err != nil {
		applog.Error("feed: list trips failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	feed := &feeds.Feed{
		Title:       "Overland East Bay - Upcoming Trips",
		Link:        &feeds.Link{Href: s.cfg.BaseURL},
		Description: "Trips and events from the Overland East Bay club",
		Created:     time.Now(),
	}

	for _, t := range trips {
		item := &feeds.Item{
			Title:       t.Name,
			Link:        &feeds.Link{Href: s.cfg.BaseURL + "/trip.html?tripId=" + strconv.FormatInt(t.ID, 10)},
			Description: t.Description,
			Id:          s.cfg.BaseURL + "/trips/" + strconv.FormatInt(t.ID, 10),
		}
		if start, err := pacific.ResolveInstant(startBound(t.Start)); err == nil {
			item.Created = start
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		applog.Error("feed: rss encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to encode feed")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rss))
}

// startBound pads a bare trip date to midnight so it resolves like the
// all-day branch of the normalizer.
func startBound(rawStart string) string {
	if len(rawStart) == 10 {
		return rawStart + "T00:00:00"
	}
	return rawStart
}
