package configs

import "github.com/spf13/viper"

const (
	DefaultTrashAutoClean     = true
	DefaultTrashRetentionDays = 30
	DefaultTrashCleanCron     = "0 3 * * *"
)

// TrashConfig 回收站自动清理.
type TrashConfig struct {
	AutoClean     bool   `mapstructure:"auto_clean"`
	RetentionDays int    `mapstructure:"retention_days" rule:"min=1"`
	CleanCron     string `mapstructure:"clean_cron"`
}

func (c *TrashConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("trash.auto_clean", DefaultTrashAutoClean)
	v.SetDefault("trash.retention_days", DefaultTrashRetentionDays)
	v.SetDefault("trash.clean_cron", DefaultTrashCleanCron)
}
