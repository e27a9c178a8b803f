package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool `mapstructure:"enabled"`  // 总开关
	Activity bool `mapstructure:"activity"` // 审计记录
	Links    bool `mapstructure:"links"`    // 公开链接创建/删除
	Purge    bool `mapstructure:"purge"`    // 永久删除
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.activity", true)
	v.SetDefault("events.links", true)
	v.SetDefault("events.purge", true)
}
