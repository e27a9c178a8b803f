package middleware

import (
	"math"
	"net"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/drivevault/pkg/api"
	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/context"
	"github.com/yeisme/drivevault/pkg/internal/service"
)

// 限流响应头.
const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// RateLimitMiddleware 按已认证用户的滑动窗口限流，必须位于 AuthMiddleware 之后.
// 每个响应都带 X-RateLimit-* 头，被拒绝时额外带 Retry-After.
func RateLimitMiddleware(limiter *service.RateLimiter) gin.HandlerFunc {
	if limiter == nil || !limiter.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		caller, ok := context.CallerID(c.Request.Context())
		if !ok {
			c.Next()

			return
		}

		res := limiter.Allow(c.Request.Context(), caller)

		c.Header(HeaderRateLimit, strconv.Itoa(res.Limit))
		c.Header(HeaderRateRemaining, strconv.Itoa(res.Remaining))
		c.Header(HeaderRateReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			c.Header(HeaderRetryAfter, strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			api.Fail(c, apperr.ErrRateLimited)

			return
		}

		c.Next()
	}
}

// PublicRateLimitMiddleware 匿名路径按客户端 IP 的令牌桶，防止暴力猜测链接口令.
func PublicRateLimitMiddleware(cfg configs.PublicRateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := newIPLimiters(rate.Limit(cfg.RPS), cfg.Burst)

	return func(c *gin.Context) {
		if !limiters.get(clientIP(c)).Allow() {
			c.Header(HeaderRetryAfter, "1")
			api.Fail(c, apperr.ErrRateLimited)

			return
		}

		c.Next()
	}
}

const maxLimiterEntries = 10000

type ipLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiters(limit rate.Limit, burst int) *ipLimiters {
	return &ipLimiters{limit: limit, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

// get 表过大时整体重置，代价是短时间内放宽限制.
func (l *ipLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[key]; ok {
		return lim
	}

	if len(l.limiters) >= maxLimiterEntries {
		l.limiters = make(map[string]*rate.Limiter)
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim

	return lim
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	if ip == "" {
		ip = "unknown"
	}

	return ip
}

