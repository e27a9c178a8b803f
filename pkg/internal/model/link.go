package model

import "time"

// LinkShare 公开链接，token 本身即凭据.
type LinkShare struct {
	ID           string       `gorm:"primaryKey;size:32"                      json:"id"`
	ResourceType ResourceType `gorm:"size:16;not null;index:idx_link_resource" json:"resource_type"`
	ResourceID   string       `gorm:"size:32;not null;index:idx_link_resource" json:"resource_id"`
	Token        string       `gorm:"size:128;not null;uniqueIndex"           json:"token"`
	Role         Role         `gorm:"size:16;not null"                        json:"role"`
	PasswordHash *string      `gorm:"size:255"                                json:"-"`
	ExpiresAt    *time.Time   `gorm:"index"                                   json:"expires_at,omitempty"`
	CreatedBy    string       `gorm:"size:255;not null"                       json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HasPassword 是否设置了访问口令.
func (l *LinkShare) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

// ExpiredAt expires_at 不晚于 now 即视为过期.
func (l *LinkShare) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
