package whatsapp

import (
	"sync"
	"time"
)

// messageLog remembers recently handled inbound message ids so redelivered
// webhooks do not record the same breeding event twice.
type messageLog struct {
	retention time.Duration
	seen      map[string]time.Time
	mu        sync.Mutex
}

func newMessageLog(retention time.Duration) *messageLog {
	return &messageLog{
		retention: retention,
		seen:      make(map[string]time.Time),
	}
}

// markNew records id and reports whether it was not seen within the retention
// window. Expired ids are dropped on the way.
func (l *messageLog) markNew(id string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, at := range l.seen {
		if now.Sub(at) > l.retention {
			delete(l.seen, key)
		}
	}

	if _, exists := l.seen[id]; exists {
		return false
	}
	l.seen[id] = now
	return true
}

func (l *messageLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
