package ai

import (
	"sync"
	"time"
)

// callLimiter is a fixed window counter: at most limit oracle calls per
// interval, counted from the first call of the window.
type callLimiter struct {
	mu          sync.Mutex
	limit       int
	interval    time.Duration
	windowStart time.Time
	count       int
	now         func() time.Time
}

func newCallLimiter(limit int, interval time.Duration) *callLimiter {
	return &callLimiter{limit: limit, interval: interval, now: time.Now}
}

// allow reports whether one more call fits in the current window and
// counts it if so
func (l *callLimiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.interval {
		l.windowStart = now
		l.count = 1
		return true
	}
	if l.count >= l.limit {
		return false
	}
	l.count++
	return true
}
