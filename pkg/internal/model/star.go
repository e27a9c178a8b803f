package model

import "time"

// Star 用户收藏.
type Star struct {
	ID           string       `gorm:"primaryKey;size:32"                           json:"id"`
	UserID       string       `gorm:"size:255;not null;uniqueIndex:idx_star_user"  json:"user_id"`
	ResourceType ResourceType `gorm:"size:16;not null;uniqueIndex:idx_star_user;index:idx_star_resource"   json:"resource_type"`
	ResourceID   string       `gorm:"size:32;not null;uniqueIndex:idx_star_user;index:idx_star_resource"   json:"resource_id"`
	CreatedAt    time.Time    `json:"created_at"`
}
