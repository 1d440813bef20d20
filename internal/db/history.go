package db

import (
	"fmt"
	"time"

	"github.com/themobileprof/deskpilot/internal/interfaces"
	"github.com/themobileprof/deskpilot/pkg/models"
)

// History stores handled utterances
type History struct {
	db *DB
}

// Ensure History implements HistoryStore interface
var _ interfaces.HistoryStore = (*History)(nil)

// NewHistory creates a history store on db
func NewHistory(db *DB) *History {
	return &History{db: db}
}

// Record inserts one entry. A zero CreatedAt means now.
func (h *History) Record(e models.HistoryEntry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := h.db.conn.Exec(`
		INSERT INTO history (session_id, raw, normalized, strategy, confidence, action_kind, ok, result, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.SessionID, e.Raw, e.Normalized, e.Strategy, e.Confidence, e.ActionKind, e.OK, e.Result, e.DurationMs, created.Unix())
	if err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (h *History) Recent(limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.conn.Query(`
		SELECT id, session_id, raw, normalized, strategy, confidence, action_kind, ok, result, duration_ms, created_at
		FROM history ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var created int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Raw, &e.Normalized, &e.Strategy, &e.Confidence,
			&e.ActionKind, &e.OK, &e.Result, &e.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the cutoff and returns how many went
func (h *History) Prune(before time.Time) (int64, error) {
	res, err := h.db.conn.Exec("DELETE FROM history WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}
