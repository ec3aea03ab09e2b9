package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 5)
	rl.now = func() time.Time { return now }

	rl.getLimiter("10.0.0.1")
	now = now.Add(10 * time.Minute)
	rl.getLimiter("10.0.0.2")

	assert.Equal(t, 1, rl.Sweep(5*time.Minute))
	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "10.0.0.2")
}

func TestRateLimiter_SameClientSharesBucket(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	assert.Same(t, rl.getLimiter("a"), rl.getLimiter("a"))
	assert.NotSame(t, rl.getLimiter("a"), rl.getLimiter("b"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	assert.False(t, NewRateLimiter(0, 0).enabled())
	assert.True(t, NewRateLimiter(1, 0).enabled())
}
