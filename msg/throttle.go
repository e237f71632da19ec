package msg

import (
	"sync"
	"time"
)

// Throttle wraps a notifier and suppresses repeats of the same alert
// key inside the hold-off window. The first alert for a key always
// goes through.
type Throttle struct {
	next   Notifier
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewThrottle creates a throttled notifier
func NewThrottle(next Notifier, window time.Duration) *Throttle {
	return &Throttle{
		next:   next,
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Notify forwards the alert unless one with the same key was delivered
// inside the window.
func (t *Throttle) Notify(key, message string) error {
	t.mu.Lock()
	now := time.Now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.window {
		t.mu.Unlock()
		return nil
	}
	t.last[key] = now
	t.mu.Unlock()

	return t.next.Notify(key, message)
}
