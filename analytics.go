package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types for analytics tracking
const (
	EvtSessionStart = "session_start"
	EvtShipJoin     = "ship_join"
	EvtGameOver     = "game_over"
	EvtPlayAgain    = "play_again"
)

const (
	analyticsQueueSize = 1024
	analyticsBatchSize = 50
	analyticsFlushIdle = 5 * time.Second
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	SessionID string
	Player    PlayerID
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// NewAnalytics creates and starts the analytics background writer. A nil
// db discards events.
func NewAnalytics(db *DB, logger zerolog.Logger) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, analyticsQueueSize),
		stop:   make(chan struct{}),
		log:    logger.With().Str("component", "analytics").Logger(),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event without blocking. Events are dropped when the queue is full.
func (a *Analytics) Track(evtType, sessionID string, player PlayerID, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		SessionID: sessionID,
		Player:    player,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		a.log.Warn().Str("event", evtType).Msg("queue full, event dropped")
	}
}

// Stop flushes queued events and shuts the writer down
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, analyticsBatchSize)
	ticker := time.NewTicker(analyticsFlushIdle)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= analyticsBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error().Err(err).Msg("begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, session_id, player_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		a.log.Error().Err(err).Msg("prepare insert")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		sid := sql.NullString{String: evt.SessionID, Valid: evt.SessionID != ""}
		pid := sql.NullString{String: string(evt.Player), Valid: evt.Player != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, sid, pid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			a.log.Error().Err(err).Str("event", evt.Type).Msg("insert event")
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error().Err(err).Msg("commit events")
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= strftime('%Y-%m-%dT%H:%M:%SZ', 'now', '-' || ? || ' days')
		GROUP BY event_type
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// StatsResponse is served at /api/stats
type StatsResponse struct {
	Peers    int            `json:"peers"`
	Sessions int            `json:"sessions"`
	Events   map[string]int `json:"events"`
}
