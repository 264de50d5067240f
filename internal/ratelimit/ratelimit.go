// Package ratelimit implements the client-side sliding-window admission check.
// Submission times are kept as an explicit list so they can be persisted and
// rehydrated; expired entries are evicted on every check.
package ratelimit

import (
	"fmt"
	"time"
)

// Prune returns the stamps with now-t < window, preserving order. Pruning the
// result again at the same instant returns it unchanged.
func Prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := make([]time.Time, 0, len(stamps))
	for _, ts := range stamps {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

// Decision is the outcome of one check.
type Decision struct {
	Kept    []time.Time // pruned list, replaces the stored one regardless of Allowed
	Allowed bool
	Limit   int
	Window  time.Duration
	Now     time.Time
}

// Limiter evaluates submissions against a trailing window.
type Limiter struct {
	window time.Duration
	now    func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func NewLimiter(window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// Check prunes stamps and reports whether one more submission fits under limit.
func (l *Limiter) Check(stamps []time.Time, limit int) Decision {
	now := l.now()
	kept := Prune(stamps, now, l.window)
	return Decision{
		Kept:    kept,
		Allowed: len(kept) < limit,
		Limit:   limit,
		Window:  l.window,
		Now:     now,
	}
}

// Record appends the submission time of a permitted send.
func Record(kept []time.Time, at time.Time) []time.Time {
	out := make([]time.Time, len(kept), len(kept)+1)
	copy(out, kept)
	return append(out, at)
}

// FormatWindow renders a window the way rejection messages name it, e.g. "30MIN".
func FormatWindow(window time.Duration) string {
	switch {
	case window >= time.Hour && window%time.Hour == 0:
		return fmt.Sprintf("%dH", int(window/time.Hour))
	case window >= time.Minute && window%time.Minute == 0:
		return fmt.Sprintf("%dMIN", int(window/time.Minute))
	default:
		return fmt.Sprintf("%dS", int(window/time.Second))
	}
}
