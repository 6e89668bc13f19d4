package middleware

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	Allow(ctx context.Context) bool
}

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	capacity   int64     // 桶容量
	tokens     int64     // 当前令牌数
	refillRate int64     // 每秒补充的令牌数
	lastRefill time.Time // 上次补充时间
	mu         sync.Mutex
}

// NewTokenBucket 创建令牌桶
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow(ctx context.Context) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tokensToAdd := int64(elapsed * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min64(tb.tokens+tokensToAdd, tb.capacity)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// PerClientLimiter 按调用方（person_id 或 IP）维护独立令牌桶。
// 桶只增不减：调用方基数有限（机构内部人员），不做过期回收。
type PerClientLimiter struct {
	capacity   int64
	refillRate int64
	buckets    map[string]*TokenBucket
	mu         sync.Mutex
}

// NewPerClientLimiter 创建按调用方限流器
func NewPerClientLimiter(capacity, refillRate int64) *PerClientLimiter {
	return &PerClientLimiter{
		capacity:   capacity,
		refillRate: refillRate,
		buckets:    make(map[string]*TokenBucket),
	}
}

// Allow 检查指定调用方是否允许请求
func (p *PerClientLimiter) Allow(ctx context.Context, client string) bool {
	p.mu.Lock()
	tb, ok := p.buckets[client]
	if !ok {
		tb = NewTokenBucket(p.capacity, p.refillRate)
		p.buckets[client] = tb
	}
	p.mu.Unlock()
	return tb.Allow(ctx)
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
