package service

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/metrics"
)

// RateLimitResult 一次限流判定.
type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter 基于请求记录表的按用户滑动窗口限流.
// 计数或写入失败时放行.
type RateLimiter struct {
	store   store.RateLimitRepository
	enabled bool
	window  time.Duration
	max     int
	sweepP  float64
	now     Clock
	roll    func() float64
	log     *zerolog.Logger
}

// NewRateLimiter 创建限流器.
func NewRateLimiter(st store.RateLimitRepository, opts Options, now Clock, log *zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		store:   st,
		enabled: opts.RateLimitEnabled,
		window:  opts.RateWindow,
		max:     opts.RateMax,
		sweepP:  opts.SweepProbability,
		now:     now,
		roll:    rand.Float64,
		log:     log,
	}
}

// SetRandom 替换概率清理使用的随机源.
func (r *RateLimiter) SetRandom(roll func() float64) {
	r.roll = roll
}

// Enabled 是否启用.
func (r *RateLimiter) Enabled() bool {
	return r.enabled && r.max > 0 && r.window > 0
}

// Allow 判定 userID 的本次请求是否放行，放行时写入一条记录.
func (r *RateLimiter) Allow(ctx context.Context, userID string) RateLimitResult {
	now := r.now()
	res := RateLimitResult{Allowed: true, Limit: r.max, Remaining: r.max, ResetAt: now.Add(r.window)}

	if !r.Enabled() || userID == "" {
		return res
	}

	r.maybeSweep(ctx, now)

	since := now.Add(-r.window)

	count, err := r.store.CountSince(ctx, userID, since)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("rate limit count failed, admitting request")

		return res
	}

	if count >= int64(r.max) {
		oldest, err := r.store.OldestSince(ctx, userID, since)
		if err != nil {
			oldest = now
		}

		res.Allowed = false
		res.Remaining = 0
		res.ResetAt = oldest.Add(r.window)

		res.RetryAfter = max(res.ResetAt.Sub(now), time.Second)

		metrics.RateLimitRejections.Inc()

		return res
	}

	if err := r.store.InsertRequest(ctx, userID, now); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("rate limit insert failed, admitting request")
	}

	res.Remaining = max(r.max-int(count)-1, 0)

	oldest, err := r.store.OldestSince(ctx, userID, since)
	if err == nil {
		res.ResetAt = oldest.Add(r.window)
	}

	return res
}

func (r *RateLimiter) maybeSweep(ctx context.Context, now time.Time) {
	if r.sweepP <= 0 || r.roll() >= r.sweepP {
		return
	}

	if _, err := r.Sweep(ctx, now); err != nil {
		r.log.Warn().Err(err).Msg("rate limit sweep failed")
	}
}

// Sweep 删除窗口之外的记录.
func (r *RateLimiter) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return r.store.DeleteBefore(ctx, now.Add(-r.window))
}
