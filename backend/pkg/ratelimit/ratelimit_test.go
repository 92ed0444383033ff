package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"shiftclock/backend/config"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func TestAllow_LocalBurst(t *testing.T) {
	l := New(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, IdleTTL: time.Minute}, nil, zap.NewNop())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "approve", "user-1"))
	assert.True(t, l.Allow(ctx, "approve", "user-1"))
	assert.False(t, l.Allow(ctx, "approve", "user-1"), "超出突发容量应拒绝")

	// 不同 scope / 不同用户互不影响
	assert.True(t, l.Allow(ctx, "override", "user-1"))
	assert.True(t, l.Allow(ctx, "approve", "user-2"))
	assert.Equal(t, 3, l.Len())
}

func TestAllow_SharedWindow(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}}
	l := New(config.RateLimitConfig{
		RequestsPerSecond: 1000, Burst: 1000, IdleTTL: time.Minute,
		Window: time.Minute, WindowLimit: 2,
	}, counter, zap.NewNop())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "export", "org-1"))
	assert.True(t, l.Allow(ctx, "export", "org-1"))
	assert.False(t, l.Allow(ctx, "export", "org-1"), "超出共享窗口上限应拒绝")
}

func TestAllow_CounterFailureDegrades(t *testing.T) {
	counter := &fakeCounter{err: errors.New("redis down")}
	l := New(config.RateLimitConfig{
		RequestsPerSecond: 1000, Burst: 10, IdleTTL: time.Minute,
		Window: time.Minute, WindowLimit: 1,
	}, counter, zap.NewNop())

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(context.Background(), "clock", "user-1"), "共享计数失败时应降级放行")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 10, IdleTTL: time.Minute}, nil, zap.NewNop())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(context.Background(), "approve", "user-1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, allowed, "并发下同一 key 只能共享一个令牌桶")
}
