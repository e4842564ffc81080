package ratelimit

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allowed", Allowed.String())
	assert.Equal(t, "throttled", Throttled.String())
	assert.Equal(t, "unknown", Decision(7).String())
}

func TestNew_Defaults(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, DefaultConfig(), l.Config())
	assert.Equal(t, 100, l.Config().Threshold)
	assert.Equal(t, 15*time.Minute, l.Config().Window)
}

func TestLimiter_Threshold(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 5, Window: time.Minute}, WithClock(clock.Now))

	for i := 1; i <= 5; i++ {
		assert.Equal(t, Allowed, l.Admit("10.0.0.1"), "call %d", i)
		clock.Advance(time.Second)
	}
	assert.Equal(t, Throttled, l.Admit("10.0.0.1"))
	assert.Equal(t, Throttled, l.Admit("10.0.0.1"))

	remaining, _ := l.Status("10.0.0.1")
	assert.Equal(t, 0, remaining)
}

func TestLimiter_DefaultThreshold(t *testing.T) {
	clock := newFakeClock()
	l := New(DefaultConfig(), WithClock(clock.Now))

	for i := 1; i <= 100; i++ {
		require.Equal(t, Allowed, l.Admit("9.9.9.9"), "call %d", i)
	}
	assert.Equal(t, Throttled, l.Admit("9.9.9.9"))
}

func TestLimiter_WindowReset(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 2, Window: time.Minute}, WithClock(clock.Now))

	assert.Equal(t, Allowed, l.Admit("k"))
	assert.Equal(t, Allowed, l.Admit("k"))
	assert.Equal(t, Throttled, l.Admit("k"))

	clock.Advance(time.Minute - time.Second)
	assert.Equal(t, Throttled, l.Admit("k"))

	clock.Advance(time.Second)
	assert.Equal(t, Allowed, l.Admit("k"))

	// fresh window starts at count 1
	remaining, resetAt := l.Status("k")
	assert.Equal(t, 1, remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)

	assert.Equal(t, Allowed, l.Admit("k"))
	assert.Equal(t, Throttled, l.Admit("k"))
}

func TestLimiter_WindowFixedFromFirstCall(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 10, Window: time.Minute}, WithClock(clock.Now))

	l.Admit("k")
	_, first := l.Status("k")

	clock.Advance(30 * time.Second)
	l.Admit("k")
	_, second := l.Status("k")

	assert.Equal(t, first, second)
}

func TestLimiter_KeyIsolation(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 3, Window: time.Minute}, WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		l.Admit("1.1.1.1")
	}
	assert.Equal(t, Throttled, l.Admit("1.1.1.1"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, Allowed, l.Admit("2.2.2.2"))
	}
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_SweepsExpiredKeys(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 3, Window: time.Minute}, WithClock(clock.Now))

	for i := 0; i < 50; i++ {
		l.Admit(fmt.Sprintf("10.0.0.%d", i))
	}
	assert.Equal(t, 50, l.Len())

	clock.Advance(time.Minute)
	l.Admit("10.1.0.1")
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_Status(t *testing.T) {
	clock := newFakeClock()
	l := New(Config{Threshold: 3, Window: time.Minute}, WithClock(clock.Now))

	remaining, resetAt := l.Status("unseen")
	assert.Equal(t, 3, remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), resetAt)
	assert.Equal(t, 0, l.Len())

	l.Admit("k")
	remaining, _ = l.Status("k")
	assert.Equal(t, 2, remaining)
}

func TestLimiter_Reset(t *testing.T) {
	l := New(Config{Threshold: 1, Window: time.Hour})

	assert.Equal(t, Allowed, l.Admit("k"))
	assert.Equal(t, Throttled, l.Admit("k"))

	l.Reset("k")
	assert.Equal(t, Allowed, l.Admit("k"))
}

func TestLimiter_Close(t *testing.T) {
	l := New(Config{Threshold: 10, Window: time.Hour})
	l.Admit("k")

	l.Close()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, Throttled, l.Admit("k"))
	assert.Equal(t, Throttled, l.Admit("fresh"))

	remaining, _ := l.Status("k")
	assert.Equal(t, 0, remaining)
}

func TestLimiter_ConcurrentAdmitNeverExceedsThreshold(t *testing.T) {
	const threshold = 50
	l := New(Config{Threshold: threshold, Window: time.Hour})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if l.Admit("shared") == Allowed {
					allowed.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(threshold), allowed.Load())
}
