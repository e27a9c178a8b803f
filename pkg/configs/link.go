package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultLinkTokenLength        = 32
	DefaultLinkPasswordIterations = 100000
	DefaultLinkSaltBytes          = 16
	DefaultLinkPresignExpiry      = 15 * time.Minute
	DefaultLinkCacheTTL           = 5 * time.Minute
)

// LinkConfig 公开链接分享配置.
type LinkConfig struct {
	TokenLength        int           `mapstructure:"token_length"        rule:"min=16,max=128"`
	PasswordIterations int           `mapstructure:"password_iterations" rule:"min=10000"`
	SaltBytes          int           `mapstructure:"salt_bytes"          rule:"min=8,max=64"`
	PresignExpiry      time.Duration `mapstructure:"presign_expiry"      rule:"gt=0"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"` // 0 表示不缓存
	BaseURL            string        `mapstructure:"base_url"`  // 生成分享地址时使用的外部地址
}

func (c *LinkConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("link.token_length", DefaultLinkTokenLength)
	v.SetDefault("link.password_iterations", DefaultLinkPasswordIterations)
	v.SetDefault("link.salt_bytes", DefaultLinkSaltBytes)
	v.SetDefault("link.presign_expiry", DefaultLinkPresignExpiry)
	v.SetDefault("link.cache_ttl", DefaultLinkCacheTTL)
	v.SetDefault("link.base_url", "")
}
