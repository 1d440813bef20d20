package models

import "time"

// HistoryEntry is one handled utterance as stored in the history table
type HistoryEntry struct {
	ID         int64
	SessionID  string
	Raw        string
	Normalized string
	Strategy   string // cascade stage, "ai", or "" when unresolved
	Confidence float64
	ActionKind string
	OK         bool
	Result     string
	DurationMs int64
	CreatedAt  time.Time
}
