// Package store 定义元数据仓储与对象存储的接口.
//
// 服务层只依赖这些接口；gormstore 为生产实现，memstore 用于测试与本地开发.
// 所有实现在记录不存在时返回 ErrNotFound，唯一约束冲突时返回 ErrDuplicate.
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/yeisme/drivevault/pkg/internal/model"
)

var (
	// ErrNotFound 记录不存在.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate 违反唯一约束.
	ErrDuplicate = errors.New("store: duplicate record")
)

// ListQuery 文件与文件夹的列表条件，零值字段不参与过滤.
type ListQuery struct {
	OwnerID string
	// ByParent 为 true 时按 ParentID 过滤，ParentID 为 nil 表示根目录.
	ByParent      bool
	ParentID      *string
	Deleted       *bool
	TrashedBefore *time.Time
	Limit         int
}

// ShareQuery Share 列表条件.
type ShareQuery struct {
	ResourceType  model.ResourceType
	ResourceID    string
	GranteeUserID string
}

// ActivityQuery 审计记录列表条件，按时间倒序.
type ActivityQuery struct {
	ActorID      string
	ResourceType model.ResourceType
	ResourceID   string
	Limit        int
}

// FolderRepository 文件夹仓储.
type FolderRepository interface {
	GetFolder(ctx context.Context, id string) (*model.Folder, error)
	CreateFolder(ctx context.Context, f *model.Folder) error
	RenameFolder(ctx context.Context, id, name string) error
	MoveFolder(ctx context.Context, id string, parentID *string) error
	SetFolderDeleted(ctx context.Context, id string, deleted bool, at *time.Time) error
	DeleteFolder(ctx context.Context, id string) error
	ListFolders(ctx context.Context, q ListQuery) ([]model.Folder, error)
}

// FileRepository 文件仓储.
type FileRepository interface {
	GetFile(ctx context.Context, id string) (*model.File, error)
	CreateFile(ctx context.Context, f *model.File) error
	RenameFile(ctx context.Context, id, name string) error
	MoveFile(ctx context.Context, id string, folderID *string) error
	SetFileDeleted(ctx context.Context, id string, deleted bool, at *time.Time) error
	DeleteFile(ctx context.Context, id string) error
	ListFiles(ctx context.Context, q ListQuery) ([]model.File, error)
}

// ShareRepository 协作者授权仓储.
type ShareRepository interface {
	FindShare(ctx context.Context, rt model.ResourceType, resourceID, grantee string) (*model.Share, error)
	GetShare(ctx context.Context, id string) (*model.Share, error)
	CreateShare(ctx context.Context, s *model.Share) error
	DeleteShare(ctx context.Context, id string) error
	ListShares(ctx context.Context, q ShareQuery) ([]model.Share, error)
	DeleteSharesByResource(ctx context.Context, rt model.ResourceType, resourceID string) (int64, error)
}

// LinkRepository 公开链接仓储.
type LinkRepository interface {
	CreateLink(ctx context.Context, l *model.LinkShare) error
	GetLink(ctx context.Context, id string) (*model.LinkShare, error)
	GetLinkByToken(ctx context.Context, token string) (*model.LinkShare, error)
	// ListLinksByResource 按创建时间倒序.
	ListLinksByResource(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.LinkShare, error)
	DeleteLink(ctx context.Context, id string) error
}

// StarRepository 收藏仓储.
type StarRepository interface {
	CreateStar(ctx context.Context, s *model.Star) error
	GetStar(ctx context.Context, userID string, rt model.ResourceType, resourceID string) (*model.Star, error)
	DeleteStar(ctx context.Context, userID string, rt model.ResourceType, resourceID string) error
	ListStars(ctx context.Context, userID string) ([]model.Star, error)
	DeleteStarsByResource(ctx context.Context, rt model.ResourceType, resourceID string) (int64, error)
}

// ActivityRepository 审计记录仓储，只追加.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, a *model.Activity) error
	ListActivities(ctx context.Context, q ActivityQuery) ([]model.Activity, error)
}

// RateLimitRepository 滑动窗口计数记录.
type RateLimitRepository interface {
	// CountSince 统计 timestamp > since 的记录数.
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	// OldestSince 返回 timestamp > since 的最早时间，没有记录时返回 ErrNotFound.
	OldestSince(ctx context.Context, userID string, since time.Time) (time.Time, error)
	InsertRequest(ctx context.Context, userID string, at time.Time) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store 聚合全部仓储.
type Store interface {
	FolderRepository
	FileRepository
	ShareRepository
	LinkRepository
	StarRepository
	ActivityRepository
	RateLimitRepository
	Ping(ctx context.Context) error
}

// PresignOptions 预签名下载参数.
type PresignOptions struct {
	FileName string
	// Inline 为 true 时浏览器内预览，否则作为附件下载.
	Inline bool
	Expiry time.Duration
}

// BlobStore 对象存储.
type BlobStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// RemoveObject 对象不存在视为成功.
	RemoveObject(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, opts PresignOptions) (string, error)
}
