// Package logring keeps the most recent log records in memory so the API
// and the ctl tool can show them without reading files.
package logring

import (
	"log/slog"
	"sync"
	"time"
)

// Record is one captured log line.
type Record struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`

	lvl slog.Level
}

// Ring is a fixed-capacity buffer of log records. Writers overwrite the
// oldest record once the ring is full.
type Ring struct {
	mu      sync.Mutex
	records []Record
	next    int
	full    bool
}

// New creates a ring holding up to capacity records.
func New(capacity int) *Ring {
	return &Ring{records: make([]Record, capacity)}
}

func (r *Ring) add(rec Record) {
	r.mu.Lock()
	r.records[r.next] = rec
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Query returns records at or above minLevel and not older than since,
// oldest first. A zero since matches everything; limit <= 0 means no limit.
// When more than limit records match, the newest ones win.
func (r *Ring) Query(since time.Time, minLevel slog.Level, limit int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, n := 0, r.next
	if r.full {
		start, n = r.next, len(r.records)
	}

	var out []Record
	for i := 0; i < n; i++ {
		rec := r.records[(start+i)%len(r.records)]
		if rec.lvl < minLevel {
			continue
		}
		if !since.IsZero() && rec.Time.Before(since) {
			continue
		}
		out = append(out, rec)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of records currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.records)
	}
	return r.next
}
