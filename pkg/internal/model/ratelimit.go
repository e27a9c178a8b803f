package model

import "time"

// RateLimitRecord 滑动窗口计数用的请求记录.
type RateLimitRecord struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"size:255;not null;index:idx_ratelimit_user_ts"`
	Timestamp time.Time `gorm:"column:requested_at;not null;index:idx_ratelimit_user_ts;index"`
}

// AllModels 自动迁移的模型列表.
func AllModels() []any {
	return []any{
		&Folder{},
		&File{},
		&Share{},
		&LinkShare{},
		&Star{},
		&Activity{},
		&RateLimitRecord{},
	}
}
