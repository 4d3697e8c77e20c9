// Package traffic keeps a sliding window of forecast request outcomes. It is
// the single source for the health handler's overload, idle and degraded checks.
package traffic

import (
	"sync"
	"time"
)

// Outcome classifies one inbound forecast request.
type Outcome uint8

const (
	Success Outcome = iota
	Error
	Denied
)

// DefaultRetention bounds how long outcomes are kept. Windows longer than this undercount.
const DefaultRetention = 30 * time.Minute

var defaultTracker = NewTracker(DefaultRetention)

// RecordSuccess records a query that returned a forecast.
func RecordSuccess() { defaultTracker.Record(Success) }

// RecordError records a query that failed (upstream error, timeout, etc.).
func RecordError() { defaultTracker.Record(Error) }

// RecordDenied records a rate-limit denial (429).
func RecordDenied() { defaultTracker.Record(Denied) }

// RequestCount returns every outcome (success + error + denied) within the window.
func RequestCount(window time.Duration) int { return defaultTracker.RequestCount(window) }

// QueryCount returns outcomes that reached the service (success + error) within the window.
func QueryCount(window time.Duration) int { return defaultTracker.QueryCount(window) }

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int { return defaultTracker.DenialCount(window) }

// ErrorRate returns (errorCount, totalCount) within the window; denials are excluded.
func ErrorRate(window time.Duration) (errors, total int) { return defaultTracker.ErrorRate(window) }

// Reset clears all recorded outcomes. For tests only.
func Reset() { defaultTracker.Reset() }

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker stores timestamped outcomes in arrival order.
type Tracker struct {
	mu        sync.Mutex
	events    []event
	retention time.Duration
	now       func() time.Time
}

func NewTracker(retention time.Duration) *Tracker {
	return &Tracker{retention: retention, now: time.Now}
}

func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events = append(t.events, event{at: now, outcome: o})
	t.pruneLocked(now)
}

func (t *Tracker) RequestCount(window time.Duration) int {
	s, e, d := t.counts(window)
	return s + e + d
}

func (t *Tracker) QueryCount(window time.Duration) int {
	s, e, _ := t.counts(window)
	return s + e
}

func (t *Tracker) DenialCount(window time.Duration) int {
	_, _, d := t.counts(window)
	return d
}

func (t *Tracker) ErrorRate(window time.Duration) (errors, total int) {
	s, e, _ := t.counts(window)
	return e, s + e
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}

func (t *Tracker) counts(window time.Duration) (success, errs, denied int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	// Events are appended in time order; walk back from the newest.
	for i := len(t.events) - 1; i >= 0; i-- {
		ev := t.events[i]
		if ev.at.Before(cutoff) {
			break
		}
		switch ev.outcome {
		case Success:
			success++
		case Error:
			errs++
		case Denied:
			denied++
		}
	}
	return
}

func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	i := 0
	for ; i < len(t.events) && t.events[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		t.events = append(t.events[:0], t.events[i:]...)
	}
}
