// Package state tracks the current picture: the latest aircraft state per
// callsign, cached in memory for the API and persisted to SQLite so the
// picture survives a restart.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"prd_gateway/internal/adsb"
)

const schema = `
CREATE TABLE IF NOT EXISTS aircraft_state (
	callsign    TEXT PRIMARY KEY,
	state_json  TEXT NOT NULL,
	first_seen  INTEGER NOT NULL,
	last_seen   INTEGER NOT NULL,
	msg_count   INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_aircraft_state_last_seen ON aircraft_state(last_seen);
`

// recoveryWindow bounds how stale a persisted state may be and still be
// restored into the memory cache on startup.
const recoveryWindow = time.Hour

// Entry is one tracked aircraft.
type Entry struct {
	State     adsb.AircraftState `json:"state"`
	FirstSeen time.Time          `json:"first_seen"`
	LastSeen  time.Time          `json:"last_seen"`
	MsgCount  int64              `json:"msg_count"`
}

// Tracker keeps the latest state per callsign.
type Tracker struct {
	db *sql.DB

	mu       sync.RWMutex
	aircraft map[string]*Entry

	now func() time.Time
}

// NewTracker opens (or creates) the tracker database at dbPath. Empty or
// ":memory:" means a throwaway in-memory database.
func NewTracker(dbPath string) (*Tracker, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tracker schema: %w", err)
	}

	t := &Tracker{
		db:       db,
		aircraft: make(map[string]*Entry),
		now:      time.Now,
	}
	if err := t.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// Close closes the database.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// load restores recently seen aircraft into the memory cache.
func (t *Tracker) load() error {
	cutoff := t.now().Add(-recoveryWindow).Unix()
	rows, err := t.db.Query(`
		SELECT callsign, state_json, first_seen, last_seen, msg_count
		FROM aircraft_state
		WHERE last_seen > ?
	`, cutoff)
	if err != nil {
		return fmt.Errorf("load aircraft states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var callsign, stateJSON string
		var firstSeen, lastSeen int64
		var e Entry
		if err := rows.Scan(&callsign, &stateJSON, &firstSeen, &lastSeen, &e.MsgCount); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(stateJSON), &e.State); err != nil {
			continue
		}
		e.FirstSeen = time.Unix(firstSeen, 0).UTC()
		e.LastSeen = time.Unix(lastSeen, 0).UTC()
		t.aircraft[callsign] = &e
	}
	return rows.Err()
}

// Name implements forward.Sink.
func (t *Tracker) Name() string { return "tracker" }

// Deliver implements forward.Sink: each delivered state updates the picture.
func (t *Tracker) Deliver(_ context.Context, st adsb.AircraftState) error {
	return t.Update(st)
}

// Update records st as the latest state for its callsign.
func (t *Tracker) Update(st adsb.AircraftState) error {
	now := t.now().UTC()

	t.mu.Lock()
	e, ok := t.aircraft[st.Callsign]
	if ok {
		e.State = st
		e.LastSeen = now
		e.MsgCount++
	} else {
		e = &Entry{State: st, FirstSeen: now, LastSeen: now, MsgCount: 1}
		t.aircraft[st.Callsign] = e
	}
	count := e.MsgCount
	t.mu.Unlock()

	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = t.db.Exec(`
		INSERT INTO aircraft_state (callsign, state_json, first_seen, last_seen, msg_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(callsign) DO UPDATE SET
			state_json = excluded.state_json,
			last_seen  = excluded.last_seen,
			msg_count  = ?
	`, st.Callsign, string(stateJSON), now.Unix(), now.Unix(), count, count)
	if err != nil {
		return fmt.Errorf("persist state for %s: %w", st.Callsign, err)
	}
	return nil
}

// Get returns the tracked entry for callsign.
func (t *Tracker) Get(callsign string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.aircraft[callsign]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns all tracked aircraft, ordered by callsign.
func (t *Tracker) List() []Entry {
	t.mu.RLock()
	entries := make([]Entry, 0, len(t.aircraft))
	for _, e := range t.aircraft {
		entries = append(entries, *e)
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].State.Callsign < entries[j].State.Callsign
	})
	return entries
}

// Len returns the number of tracked aircraft.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.aircraft)
}
