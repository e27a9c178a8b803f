package types

import "time"

// ResourceQuery 通过查询参数定位资源.
type ResourceQuery struct {
	ResourceType string `form:"resource_type" rule:"required,restype"`
	ResourceID   string `form:"resource_id"   rule:"required"`
}

// CreateShareRequest 授予协作者角色.
type CreateShareRequest struct {
	ResourceType  string `json:"resource_type"   rule:"required,restype"`
	ResourceID    string `json:"resource_id"     rule:"required"`
	GranteeUserID string `json:"grantee_user_id" rule:"required,max=255"`
	Role          string `json:"role"            rule:"required,sharerole"`
}

// CreateLinkRequest 创建公开链接.
type CreateLinkRequest struct {
	ResourceType string     `json:"resource_type" rule:"required,restype"`
	ResourceID   string     `json:"resource_id"   rule:"required"`
	Password     string     `json:"password"      rule:"omitempty,max=128"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// ResolveLinkRequest 带口令解析公开链接.
type ResolveLinkRequest struct {
	Password string `json:"password" rule:"max=128"`
}

// StarRequest 收藏资源.
type StarRequest struct {
	ResourceType string `json:"resource_type" rule:"required,restype"`
	ResourceID   string `json:"resource_id"   rule:"required"`
}

// PermissionQuery 权限检查的目标角色.
type PermissionQuery struct {
	Role string `form:"role" rule:"omitempty,sharerole"`
}
