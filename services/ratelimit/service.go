// Package ratelimit bounds how many documents a client may generate in a
// sliding time window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock returns the current time
type Clock func() time.Time

// Decision is the outcome of a quota check
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter is an in-process sliding-window limiter keyed by client.
// Check never consumes quota; Record does.
type Limiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
	now    Clock
	logger *zap.Logger
}

// NewLimiter creates a limiter allowing limit events per window.
// A nil clock uses time.Now.
func NewLimiter(limit int, window time.Duration, clock Clock, logger *zap.Logger) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    clock,
		logger: logger,
	}
}

// Limit returns the configured number of events per window
func (l *Limiter) Limit() int {
	return l.limit
}

// Check reports whether key may record another event
func (l *Limiter) Check(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	active := l.prune(key, now)
	return l.decide(active, now)
}

// Record consumes one unit of quota for key and returns the decision that
// applies afterwards
func (l *Limiter) Record(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	active := append(l.prune(key, now), now)
	l.events[key] = active

	l.logger.Debug("recorded rate limited event",
		zap.String("key", key),
		zap.Int("used", len(active)),
		zap.Int("limit", l.limit))

	return l.decide(active, now)
}

// Cleanup drops keys whose events have all left the window and returns
// how many keys were removed
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key := range l.events {
		if len(l.prune(key, now)) == 0 {
			removed++
		}
	}
	return removed
}

// Keys returns how many clients currently have events in the window
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// StartCleanupWorker periodically prunes expired keys until ctx is done
func (l *Limiter) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("window", l.window))

	for {
		select {
		case <-ticker.C:
			if removed := l.Cleanup(); removed > 0 {
				l.logger.Debug("cleaned up rate limit keys", zap.Int("removed", removed))
			}
		case <-ctx.Done():
			l.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}

// prune removes events older than the window. Caller holds the lock.
func (l *Limiter) prune(key string, now time.Time) []time.Time {
	events := l.events[key]
	cutoff := now.Add(-l.window)

	i := 0
	for i < len(events) && !events[i].After(cutoff) {
		i++
	}
	active := events[i:]
	if len(active) == 0 {
		delete(l.events, key)
		return nil
	}
	l.events[key] = active
	return active
}

func (l *Limiter) decide(active []time.Time, now time.Time) Decision {
	used := len(active)
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}

	resetAt := now.Add(l.window)
	if used > 0 {
		resetAt = active[0].Add(l.window)
	}

	return Decision{
		Allowed:   used < l.limit,
		Used:      used,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
