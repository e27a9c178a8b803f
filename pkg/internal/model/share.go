package model

import "time"

// Share 向单个用户授予某资源的 viewer 或 editor 角色.
// 同一资源同一被授权人至多一条.
type Share struct {
	ID            string       `gorm:"primaryKey;size:32"                                   json:"id"`
	ResourceType  ResourceType `gorm:"size:16;not null;uniqueIndex:idx_share_grant"         json:"resource_type"`
	ResourceID    string       `gorm:"size:32;not null;uniqueIndex:idx_share_grant"         json:"resource_id"`
	GranteeUserID string       `gorm:"size:255;not null;uniqueIndex:idx_share_grant;index" json:"grantee_user_id"`
	Role          Role         `gorm:"size:16;not null"                                     json:"role"`
	CreatedBy     string       `gorm:"size:255;not null"                                    json:"created_by"`
	CreatedAt     time.Time    `json:"created_at"`
}
