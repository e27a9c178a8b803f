// Package model 定义数据库模型与资源、角色等领域类型.
package model

import "fmt"

// ResourceType 资源类型.
type ResourceType string

const (
	ResourceFile   ResourceType = "file"
	ResourceFolder ResourceType = "folder"
)

// Valid 是否为已知类型.
func (t ResourceType) Valid() bool {
	return t == ResourceFile || t == ResourceFolder
}

// ParseResourceType 解析路径或查询参数中的资源类型.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}

	return t, nil
}

// Role 对资源的有效角色，owner 不以 Share 记录表示.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// Satisfies editor 满足任何要求，viewer 只满足 viewer 要求.
func (r Role) Satisfies(required Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}

	need, ok := roleRank[required]
	if !ok {
		return false
	}

	return have >= need
}

// Grantable 是否可以通过 Share 授予.
func (r Role) Grantable() bool {
	return r == RoleViewer || r == RoleEditor
}

// Resource 文件与文件夹的公共视图.
type Resource interface {
	ResourceType() ResourceType
	ResourceID() string
	Owner() string
	Parent() *string
	Trashed() bool
}
