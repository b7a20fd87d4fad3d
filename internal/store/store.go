// Package store persists trips and their RSVPs in SQLite. Trip start and
// end are kept exactly as authored (civil Pacific date/time strings);
// resolution to absolute instants happens in the event package when a
// calendar export is requested, never at rest.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a trip does not exist.
var ErrNotFound = errors.New("not found")

// RSVP responses accepted by SetRSVP.
const (
	ResponseGoing    = "going"
	ResponseNotGoing = "not_going"
	ResponseMaybe    = "maybe"
)

// Trip is a published club trip.
type Trip struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Start       string  `json:"startDate"` // civil Pacific, bare date or date-time
	End         string  `json:"endDate,omitempty"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat,omitempty"` // destination, for the weather widget
	Lon         float64 `json:"lon,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// RSVPSummary groups member names by response, in the shape the RSVP
// widget consumes.
type RSVPSummary struct {
	AttendingMembers    []string `json:"attendingMembers"`
	NotAttendingMembers []string `json:"notAttendingMembers"`
	MaybeMembers        []string `json:"maybeMembers"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at dbPath and
// applies migrations.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT DEFAULT '',
			location TEXT DEFAULT '',
			description TEXT DEFAULT '',
			lat REAL DEFAULT 0,
			lon REAL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_start_date ON trips(start_date)`,
		`CREATE TABLE IF NOT EXISTS rsvps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trip_id INTEGER NOT NULL,
			member_name TEXT NOT NULL,
			response TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(trip_id, member_name),
			FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rsvps_trip_id ON rsvps(trip_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// CreateTrip inserts a trip and fills in its assigned ID.
func (s *Store) CreateTrip(t *Trip) error {
	if t.Name == "" {
		return errors.New("trip name is required")
	}
	if t.Start == "" {
		return errors.New("trip start date is required")
	}

	res, err := s.db.Exec(
		`INSERT INTO trips (name, start_date, end_date, location, description, lat, lon)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Start, t.End, t.Location, t.Description, t.Lat, t.Lon,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return nil
}

// GetTrip returns a single trip by ID.
func (s *Store) GetTrip(id int64) (*Trip, error) {
	row := s.db.QueryRow(
		`SELECT id, name, start_date, end_date, location, description, lat, lon, created_at
		 FROM trips WHERE id = ?`, id)

	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

// ListUpcomingTrips returns trips whose start date is on or after the
// given civil date, earliest first. Civil strings are zero-padded, so
// lexicographic comparison in SQL orders them correctly.
func (s *Store) ListUpcomingTrips(fromDate string) ([]*Trip, error) {
	rows, err := s.db.Query(
		`SELECT id, name, start_date, end_date, location, description, lat, lon, created_at
		 FROM trips WHERE substr(start_date, 1, 10) >= ? ORDER BY start_date ASC`, fromDate)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

// DeleteTrip removes a trip and, via the foreign key cascade, its RSVPs.
func (s *Store) DeleteTrip(id int64) error {
	res, err := s.db.Exec(`DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRSVP records or updates a member's response for a trip.
func (s *Store) SetRSVP(tripID int64, memberName, response string) error {
	if memberName == "" {
		return errors.New("member name is required")
	}
	switch response {
	case ResponseGoing, ResponseNotGoing, ResponseMaybe:
	default:
		return fmt.Errorf("unknown rsvp response %q", response)
	}

	if _, err := s.GetTrip(tripID); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT INTO rsvps (trip_id, member_name, response, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(trip_id, member_name)
		 DO UPDATE SET response = excluded.response, updated_at = CURRENT_TIMESTAMP`,
		tripID, memberName, response,
	)
	if err != nil {
		return fmt.Errorf("set rsvp: %w", err)
	}
	return nil
}

// GetRSVPSummary returns the member lists for a trip grouped by response.
func (s *Store) GetRSVPSummary(tripID int64) (*RSVPSummary, error) {
	if _, err := s.GetTrip(tripID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT member_name, response FROM rsvps
		 WHERE trip_id = ? ORDER BY member_name ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	summary := &RSVPSummary{
		AttendingMembers:    []string{},
		NotAttendingMembers: []string{},
		MaybeMembers:        []string{},
	}
	for rows.Next() {
		var name, response string
		if err := rows.Scan(&name, &response); err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		switch response {
		case ResponseGoing:
			summary.AttendingMembers = append(summary.AttendingMembers, name)
		case ResponseNotGoing:
			summary.NotAttendingMembers = append(summary.NotAttendingMembers, name)
		case ResponseMaybe:
			summary.MaybeMembers = append(summary.MaybeMembers, name)
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(r rowScanner) (*Trip, error) {
	var t Trip
	err := r.Scan(&t.ID, &t.Name, &t.Start, &t.End, &t.Location, &t.Description, &t.Lat, &t.Lon, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
