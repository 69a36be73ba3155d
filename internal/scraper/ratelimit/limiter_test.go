package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobleads/internal/config"
	"jobleads/internal/logging"
)

func newTestLimiter(t *testing.T, cfg config.RateLimitConfig) (*Limiter, *time.Time) {
	t.Helper()
	l := New(cfg, logging.NewNopLogger())
	t.Cleanup(l.Stop)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowRespectsBurst(t *testing.T) {
	l, _ := newTestLimiter(t, config.RateLimitConfig{RequestsPerMinute: 1, Burst: 2, MaxFailures: 3, ResetTimeout: time.Minute})

	assert.True(t, l.Allow("www.arbeitsagentur.de"))
	assert.True(t, l.Allow("WWW.Arbeitsagentur.de"))
	assert.False(t, l.Allow("www.arbeitsagentur.de"))
	assert.True(t, l.Allow("partner.de"))
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	l, now := newTestLimiter(t, config.RateLimitConfig{RequestsPerMinute: 600, Burst: 10, MaxFailures: 2, ResetTimeout: time.Minute})
	host := "www.arbeitsagentur.de"

	l.RecordFailure(host, errors.New("navigation timeout"))
	assert.Equal(t, CircuitClosed, l.State(host))
	l.RecordFailure(host, errors.New("navigation timeout"))
	assert.Equal(t, CircuitOpen, l.State(host))

	err := l.Wait(context.Background(), host)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, l.Allow(host))

	*now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow(host))
	assert.Equal(t, CircuitHalfOpen, l.State(host))

	l.RecordFailure(host, nil)
	assert.Equal(t, CircuitOpen, l.State(host))

	*now = now.Add(2 * time.Minute)
	require.NoError(t, l.Wait(context.Background(), host))
	l.RecordSuccess(host)
	assert.Equal(t, CircuitClosed, l.State(host))
}

func TestWaitHonoursContext(t *testing.T) {
	l, _ := newTestLimiter(t, config.RateLimitConfig{RequestsPerMinute: 1, Burst: 1, MaxFailures: 5, ResetTimeout: time.Minute})

	require.NoError(t, l.Wait(context.Background(), "slow.de"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "slow.de"))
}

func TestStats(t *testing.T) {
	l, _ := newTestLimiter(t, config.RateLimitConfig{RequestsPerMinute: 60, Burst: 3, MaxFailures: 5, ResetTimeout: time.Minute})

	l.Allow("a.de")
	l.RecordFailure("a.de", errors.New("boom"))
	l.RecordFailure("b.de", errors.New("boom"))

	stats := l.Stats()
	require.Len(t, stats, 2)

	byHost := map[string]HostStats{}
	for _, s := range stats {
		byHost[s.Host] = s
	}
	assert.Equal(t, int64(1), byHost["a.de"].Requests)
	assert.Equal(t, int64(1), byHost["a.de"].Failures)
	assert.Equal(t, 3, byHost["a.de"].Burst)
	assert.Equal(t, 1, byHost["b.de"].FailureCount)
	assert.Equal(t, "closed", byHost["b.de"].CircuitState)
}

func TestCleanupRemovesIdleHosts(t *testing.T) {
	l, now := newTestLimiter(t, config.RateLimitConfig{RequestsPerMinute: 60, Burst: 3, MaxFailures: 5, ResetTimeout: time.Minute})

	l.Allow("idle.de")
	*now = now.Add(11 * time.Minute)
	l.cleanup()

	assert.Empty(t, l.Stats())
}
