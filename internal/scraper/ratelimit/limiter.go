// Package ratelimit paces navigations per host and stops sending traffic to
// hosts that keep failing.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

// ErrCircuitOpen is returned while a host's circuit breaker is open
var ErrCircuitOpen = errors.New("ratelimit: circuit open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns string representation of CircuitState
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// hostLimiter paces one host
type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
	failures int64
}

// circuitBreaker trips after maxFailures consecutive failures and lets a
// single probe through after resetTimeout
type circuitBreaker struct {
	failureCount int
	lastFailTime time.Time
	state        CircuitState
}

// HostStats is a snapshot of one host's limiter and breaker
type HostStats struct {
	Host         string    `json:"host"`
	Requests     int64     `json:"requests"`
	Failures     int64     `json:"failures"`
	LastSeen     time.Time `json:"lastSeen"`
	Limit        float64   `json:"limitPerSecond"`
	Burst        int       `json:"burst"`
	CircuitState string    `json:"circuitState"`
	FailureCount int       `json:"failureCount"`
}

// Limiter manages rate limiting and circuit breaking per host
type Limiter struct {
	cfg    config.RateLimitConfig
	logger logging.Logger
	now    func() time.Time

	mu       sync.Mutex
	hosts    map[string]*hostLimiter
	breakers map[string]*circuitBreaker

	cleanupTicker *time.Ticker
	stopOnce      sync.Once
	stop          chan struct{}
}

// New creates a limiter and starts its cleanup routine
func New(cfg config.RateLimitConfig, logger logging.Logger) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	l := &Limiter{
		cfg:           cfg,
		logger:        logger.WithField("component", "rate_limiter"),
		now:           time.Now,
		hosts:         make(map[string]*hostLimiter),
		breakers:      make(map[string]*circuitBreaker),
		cleanupTicker: time.NewTicker(5 * time.Minute),
		stop:          make(chan struct{}),
	}

	go l.cleanupRoutine()

	return l
}

// Wait blocks until a request to host is allowed by the rate limit. It
// fails fast with ErrCircuitOpen while the host's breaker is open.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	host = normalize(host)

	l.mu.Lock()
	if !l.circuitAllows(host) {
		l.mu.Unlock()
		return fmt.Errorf("%w for %s", ErrCircuitOpen, host)
	}
	hl := l.hostLimiter(host)
	l.mu.Unlock()

	if err := hl.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	hl.requests++
	hl.lastSeen = l.now()
	l.mu.Unlock()
	return nil
}

// Allow reports whether a request to host may go out right now
func (l *Limiter) Allow(host string) bool {
	host = normalize(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.circuitAllows(host) {
		l.logger.Debug("Request rejected by circuit breaker", map[string]interface{}{"host": host})
		return false
	}

	hl := l.hostLimiter(host)
	if !hl.limiter.Allow() {
		l.logger.Debug("Request rejected by rate limiter", map[string]interface{}{"host": host})
		return false
	}
	hl.requests++
	hl.lastSeen = l.now()
	return true
}

// RecordSuccess closes a half-open breaker and resets the failure count
func (l *Limiter) RecordSuccess(host string) {
	host = normalize(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	cb, ok := l.breakers[host]
	if !ok {
		return
	}
	if cb.state == CircuitHalfOpen {
		l.logger.Info("Circuit breaker closed after successful request", map[string]interface{}{"host": host})
	}
	cb.state = CircuitClosed
	cb.failureCount = 0
}

// RecordFailure counts a failure and opens the breaker at the threshold.
// A failure while half-open reopens it immediately.
func (l *Limiter) RecordFailure(host string, err error) {
	host = normalize(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if hl, ok := l.hosts[host]; ok {
		hl.failures++
	}

	cb := l.breaker(host)
	cb.failureCount++
	cb.lastFailTime = l.now()

	if cb.state == CircuitHalfOpen || (cb.state == CircuitClosed && cb.failureCount >= l.cfg.MaxFailures) {
		cb.state = CircuitOpen
		fields := map[string]interface{}{
			"host":     host,
			"failures": cb.failureCount,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		l.logger.Warn("Circuit breaker opened due to failures", fields)
	}
}

// State returns the breaker state for host
func (l *Limiter) State(host string) CircuitState {
	host = normalize(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	if cb, ok := l.breakers[host]; ok {
		return cb.state
	}
	return CircuitClosed
}

// Stats returns statistics for all known hosts
func (l *Limiter) Stats() []HostStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool)
	var stats []HostStats
	add := func(host string) {
		if seen[host] {
			return
		}
		seen[host] = true

		s := HostStats{Host: host, CircuitState: CircuitClosed.String()}
		if hl, ok := l.hosts[host]; ok {
			s.Requests = hl.requests
			s.Failures = hl.failures
			s.LastSeen = hl.lastSeen
			s.Limit = float64(hl.limiter.Limit())
			s.Burst = hl.limiter.Burst()
		}
		if cb, ok := l.breakers[host]; ok {
			s.CircuitState = cb.state.String()
			s.FailureCount = cb.failureCount
		}
		stats = append(stats, s)
	}

	for host := range l.hosts {
		add(host)
	}
	for host := range l.breakers {
		add(host)
	}
	return stats
}

// Stop stops the cleanup routine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// hostLimiter gets or creates the limiter for host. Callers hold l.mu.
func (l *Limiter) hostLimiter(host string) *hostLimiter {
	if hl, ok := l.hosts[host]; ok {
		return hl
	}

	rps := rate.Limit(float64(l.cfg.RequestsPerMinute) / 60.0)
	hl := &hostLimiter{
		limiter:  rate.NewLimiter(rps, l.cfg.Burst),
		lastSeen: l.now(),
	}
	l.hosts[host] = hl

	l.logger.Debug("Created new host rate limiter", map[string]interface{}{
		"host":  host,
		"rate":  float64(rps),
		"burst": l.cfg.Burst,
	})
	return hl
}

// breaker gets or creates the breaker for host. Callers hold l.mu.
func (l *Limiter) breaker(host string) *circuitBreaker {
	if cb, ok := l.breakers[host]; ok {
		return cb
	}
	cb := &circuitBreaker{state: CircuitClosed}
	l.breakers[host] = cb
	return cb
}

// circuitAllows moves an expired open breaker to half-open. Callers hold l.mu.
func (l *Limiter) circuitAllows(host string) bool {
	cb, ok := l.breakers[host]
	if !ok {
		return true
	}

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if l.now().Sub(cb.lastFailTime) > l.cfg.ResetTimeout {
			cb.state = CircuitHalfOpen
			l.logger.Info("Circuit breaker transitioned to half-open", map[string]interface{}{"host": host})
			return true
		}
		return false
	default:
		return false
	}
}

func (l *Limiter) cleanupRoutine() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanup()
		case <-l.stop:
			l.cleanupTicker.Stop()
			return
		}
	}
}

// cleanup removes limiters idle for 10 minutes and closed breakers without
// recent failures
func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-10 * time.Minute)
	removed := 0

	for host, hl := range l.hosts {
		if hl.lastSeen.Before(cutoff) {
			delete(l.hosts, host)
			removed++
		}
	}
	for host, cb := range l.breakers {
		if cb.state == CircuitClosed && cb.lastFailTime.Before(cutoff) {
			delete(l.breakers, host)
		}
	}

	if removed > 0 {
		l.logger.Info("Cleaned up unused rate limiters", map[string]interface{}{"removed_count": removed})
	}
}

func normalize(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "unknown"
	}
	return host
}
