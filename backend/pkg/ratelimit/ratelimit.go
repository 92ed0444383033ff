package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"shiftclock/backend/config"
)

// WindowCounter 多实例共享的固定窗口计数器（由 pkg/redis.Client 实现）
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter 按 (scope, 标识) 维度限流
// 本地令牌桶是尽力而为的缓存，闲置超过 idleTTL 自动淘汰；
// 配置了 counter 时再叠加一层跨实例的窗口上限
type Limiter struct {
	store   *cache.Cache
	mu      sync.Mutex
	r       rate.Limit
	b       int
	idleTTL time.Duration

	counter     WindowCounter
	window      time.Duration
	windowLimit int

	logger *zap.Logger
}

// New 创建限流器；counter 可为 nil（单实例部署）
func New(cfg config.RateLimitConfig, counter WindowCounter, logger *zap.Logger) *Limiter {
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		store:       cache.New(idle, idle/2),
		r:           rate.Limit(cfg.RequestsPerSecond),
		b:           burst,
		idleTTL:     idle,
		counter:     counter,
		window:      cfg.Window,
		windowLimit: cfg.WindowLimit,
		logger:      logger,
	}
}

func key(scope, id string) string {
	return scope + ":" + id
}

// limiterFor 获取或创建令牌桶，每次访问刷新闲置期
func (l *Limiter) limiterFor(k string) *rate.Limiter {
	if v, ok := l.store.Get(k); ok {
		lim := v.(*rate.Limiter)
		l.store.Set(k, lim, l.idleTTL)
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.store.Get(k); ok {
		return v.(*rate.Limiter)
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.store.Set(k, lim, l.idleTTL)
	return lim
}

// Allow 判断本次请求是否放行
// 共享计数器故障时降级为仅本地限流
func (l *Limiter) Allow(ctx context.Context, scope, id string) bool {
	k := key(scope, id)
	if !l.limiterFor(k).Allow() {
		return false
	}

	if l.counter == nil || l.windowLimit <= 0 || l.window <= 0 {
		return true
	}

	n, err := l.counter.IncrWindow(ctx, k, l.window)
	if err != nil {
		l.logger.Warn("共享限流计数失败，降级为本地限流", zap.String("key", k), zap.Error(err))
		return true
	}
	return n <= int64(l.windowLimit)
}

// Len 当前缓存的本地限流器数量
func (l *Limiter) Len() int {
	return l.store.ItemCount()
}
