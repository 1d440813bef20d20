// Package journey records how each utterance travelled through the
// resolver cascade, one JSON object per line.
package journey

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journey is the trace of a single utterance. It is owned by the call
// handling that utterance; the mutex only guards the rare case of a
// caller sharing it with a goroutine.
type Journey struct {
	mu sync.Mutex

	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	Steps      []Step    `json:"steps"`
	Action     string    `json:"action,omitempty"`
	Result     string    `json:"result,omitempty"`
	OK         bool      `json:"ok"`
}

// Step is one cascade stage (directive, literal, ..., fuzzy, ai)
type Step struct {
	Source     string  `json:"source"`
	Matched    bool    `json:"matched"`
	Confidence float64 `json:"confidence"`
	DurationUs int64   `json:"duration_us"`
	Details    string  `json:"details,omitempty"`
}

// New starts a journey for one utterance
func New(id, raw string) *Journey {
	return &Journey{
		ID:        id,
		Timestamp: time.Now(),
		Raw:       raw,
		Steps:     make([]Step, 0, 8),
	}
}

// SetNormalized records the normalized form of the utterance
func (j *Journey) SetNormalized(text string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Normalized = text
}

// AddStep records a stage. A nil journey ignores the call.
func (j *Journey) AddStep(source string, matched bool, confidence float64, duration time.Duration, details string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	j.Steps = append(j.Steps, Step{
		Source:     source,
		Matched:    matched,
		Confidence: confidence,
		DurationUs: duration.Microseconds(),
		Details:    details,
	})
}

// Finish records the dispatched action and its result
func (j *Journey) Finish(action, result string, ok bool) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Action = action
	j.Result = result
	j.OK = ok
}

// Snapshot returns a copy of the recorded steps
func (j *Journey) Snapshot() []Step {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Step(nil), j.Steps...)
}

// Logger appends finished journeys to a JSONL file
type Logger struct {
	mu          sync.Mutex
	logFilePath string
}

// DefaultPath is ~/.deskpilot/journey.jsonl
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".deskpilot", "journey.jsonl")
}

// NewLogger creates a logger writing to path
func NewLogger(path string) *Logger {
	return &Logger{logFilePath: path}
}

// Write appends one journey. Concurrent writers are serialized so lines
// never interleave.
func (l *Logger) Write(j *Journey) error {
	if l == nil || j == nil {
		return nil
	}

	j.mu.Lock()
	data, err := json.Marshal(j)
	j.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode journey: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.logFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create journey directory: %w", err)
	}
	f, err := os.OpenFile(l.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journey log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journey log: %w", err)
	}
	return nil
}
