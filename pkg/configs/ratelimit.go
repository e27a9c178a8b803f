package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	// 按用户的滑动窗口限流.
	DefaultRateLimitEnabled          = true
	DefaultRateLimitWindow           = 15 * time.Minute
	DefaultRateLimitMaxRequests      = 100
	DefaultRateLimitSweepProbability = 0.01
	DefaultRateLimitSweepCron        = "*/10 * * * *"

	// 匿名公开链接按 IP 的令牌桶.
	DefaultPublicRPS   = 5.0
	DefaultPublicBurst = 20
)

// RateLimitConfig 速率限制配置.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Window 滑动窗口长度
	Window time.Duration `mapstructure:"window"            rule:"gt=0"`
	// MaxRequests 窗口内允许的最大请求数
	MaxRequests int `mapstructure:"max_requests"      rule:"min=1"`
	// SweepProbability 每次请求触发过期记录清理的概率 [0,1]
	SweepProbability float64 `mapstructure:"sweep_probability" rule:"min=0,max=1"`
	// SweepCron 定时清理的 cron 表达式，空字符串表示关闭
	SweepCron string `mapstructure:"sweep_cron"`

	Public PublicRateLimitConfig `mapstructure:"public"`
}

// PublicRateLimitConfig 匿名路径（公开链接解析）的按 IP 令牌桶.
type PublicRateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"     rule:"gt=0"`  // 每秒允许的请求数
	Burst   int     `mapstructure:"burst"   rule:"min=1"` // 突发容量
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.window", DefaultRateLimitWindow)
	v.SetDefault("rate_limit.max_requests", DefaultRateLimitMaxRequests)
	v.SetDefault("rate_limit.sweep_probability", DefaultRateLimitSweepProbability)
	v.SetDefault("rate_limit.sweep_cron", DefaultRateLimitSweepCron)

	v.SetDefault("rate_limit.public.enabled", true)
	v.SetDefault("rate_limit.public.rps", DefaultPublicRPS)
	v.SetDefault("rate_limit.public.burst", DefaultPublicBurst)
}
