package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAccessMaxDepth         = 1000            // 层级遍历的深度上限
	DefaultAccessOperationTimeout = 2 * time.Minute // 级联操作的最长执行时间
)

// AccessConfig 权限解析、移动校验与级联删除共用的边界.
type AccessConfig struct {
	MaxDepth         int           `mapstructure:"max_depth"         rule:"min=1,max=100000"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" rule:"gt=0"`
}

func (c *AccessConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("access.max_depth", DefaultAccessMaxDepth)
	v.SetDefault("access.operation_timeout", DefaultAccessOperationTimeout)
}
