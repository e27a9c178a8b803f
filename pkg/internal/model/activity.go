package model

import "time"

// 审计动作.
const (
	ActionCreate      = "create"
	ActionUpload      = "upload"
	ActionRename      = "rename"
	ActionMove        = "move"
	ActionTrash       = "trash"
	ActionRestore     = "restore"
	ActionPurge       = "purge"
	ActionShareCreate = "share.create"
	ActionShareDelete = "share.delete"
	ActionLinkCreate  = "link.create"
	ActionLinkDelete  = "link.delete"
)

// Activity 只追加的审计记录，Context 为 JSON 文本.
type Activity struct {
	ID           string       `gorm:"primaryKey;size:32"                         json:"id"`
	ActorID      string       `gorm:"size:255;not null;index"                    json:"actor_id"`
	Action       string       `gorm:"size:32;not null"                           json:"action"`
	ResourceType ResourceType `gorm:"size:16;not null;index:idx_activity_resource" json:"resource_type"`
	ResourceID   string       `gorm:"size:32;not null;index:idx_activity_resource" json:"resource_id"`
	Context      string       `gorm:"type:text"                                  json:"context,omitempty"`
	CreatedAt    time.Time    `gorm:"index"                                      json:"created_at"`
}
