// Package types 定义 HTTP 请求体与查询参数，使用 rule 标签校验.
package types

// CreateFolderRequest 创建文件夹请求.
type CreateFolderRequest struct {
	Name     string  `json:"name"      rule:"required,resname"` // 文件夹名称
	ParentID *string `json:"parent_id" rule:"omitempty,min=1"`  // 父文件夹 ID，为空表示根目录
}

// RenameRequest 重命名请求，文件与文件夹共用.
type RenameRequest struct {
	Name string `json:"name" rule:"required,resname"`
}

// MoveFolderRequest 移动文件夹请求，parent_id 为空表示移动到根目录.
type MoveFolderRequest struct {
	ParentID *string `json:"parent_id" rule:"omitempty,min=1"`
}

// MoveFileRequest 移动文件请求，folder_id 为空表示移动到根目录.
type MoveFileRequest struct {
	FolderID *string `json:"folder_id" rule:"omitempty,min=1"`
}

// ListFolderQuery 列出子项.
type ListFolderQuery struct {
	ParentID string `form:"parent_id"`
}

// ActivityQuery 动态分页.
type ActivityQuery struct {
	Limit int `form:"limit" rule:"omitempty,min=1,max=200"`
}
