package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断器配置. 5xx 响应计为失败，打开后请求直接返回 503.
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureRatio 窗口内失败比例达到该值时打开
	FailureRatio float64 `mapstructure:"failure_ratio" rule:"gte=0,lte=1"`
	// MinRequests 窗口内请求数不足时不判定
	MinRequests uint32 `mapstructure:"min_requests"`
	// Interval 闭合状态下的计数清零周期
	Interval time.Duration `mapstructure:"interval"`
	// OpenTimeout 打开状态持续时间，之后进入半开
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
	// HalfOpenRequests 半开状态放行的探测请求数
	HalfOpenRequests uint32 `mapstructure:"half_open_requests"`
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.failure_ratio", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.open_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.half_open_requests", 5)
}
