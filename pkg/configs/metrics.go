package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Metrics相关配置.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`         // 是否启用Metrics
	Path           string            `mapstructure:"path"`            // 暴露路径
	ServiceName    string            `mapstructure:"service_name"`    // 服务名称
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // 是否收集运行时指标
	DBStats        bool              `mapstructure:"db_stats"`        // gorm 连接池指标
	Labels         map[string]string `mapstructure:"labels"`          // 默认标签
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.service_name", "drivevault")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.db_stats", true)
	v.SetDefault("metrics.labels", map[string]string{
		"service": "drivevault",
	})
}
