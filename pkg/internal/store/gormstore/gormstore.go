// Package gormstore 基于 gorm 的 store.Store 实现.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// Store gorm 仓储.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New 使用已打开的连接创建仓储.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate 建表.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(model.AllModels()...)
}

// Ping 检查连接.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// translate 把 gorm 错误映射为 store 哨兵错误.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return store.ErrDuplicate
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isUniqueViolation 兜底识别未被 dialector 翻译的唯一约束错误.
func isUniqueViolation(err error) bool {
	msg := err.Error()

	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// affected 更新或删除零行时视为不存在.
func affected(op string, tx *gorm.DB) error {
	if tx.Error != nil {
		return translate(op, tx.Error)
	}

	if tx.RowsAffected == 0 {
		return store.ErrNotFound
	}

	return nil
}

func applyList(tx *gorm.DB, q store.ListQuery, parentCol string) *gorm.DB {
	if q.OwnerID != "" {
		tx = tx.Where("owner_id = ?", q.OwnerID)
	}

	if q.ByParent {
		if q.ParentID == nil {
			tx = tx.Where(parentCol + " IS NULL")
		} else {
			tx = tx.Where(parentCol+" = ?", *q.ParentID)
		}
	}

	if q.Deleted != nil {
		tx = tx.Where("is_deleted = ?", *q.Deleted)
	}

	if q.TrashedBefore != nil {
		tx = tx.Where("trashed_at IS NOT NULL AND trashed_at < ?", *q.TrashedBefore)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	return tx.Order("id")
}

// ---------------------------------------------------------------- folders

func (s *Store) GetFolder(ctx context.Context, id string) (*model.Folder, error) {
	var f model.Folder
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		return nil, translate("get folder", err)
	}

	return &f, nil
}

func (s *Store) CreateFolder(ctx context.Context, f *model.Folder) error {
	return translate("create folder", s.db.WithContext(ctx).Create(f).Error)
}

func (s *Store) RenameFolder(ctx context.Context, id, name string) error {
	tx := s.db.WithContext(ctx).Model(&model.Folder{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})

	return affected("rename folder", tx)
}

func (s *Store) MoveFolder(ctx context.Context, id string, parentID *string) error {
	tx := s.db.WithContext(ctx).Model(&model.Folder{}).Where("id = ?", id).
		Updates(map[string]any{"parent_id": parentID, "updated_at": time.Now().UTC()})

	return affected("move folder", tx)
}

func (s *Store) SetFolderDeleted(ctx context.Context, id string, deleted bool, at *time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.Folder{}).Where("id = ?", id).
		Updates(map[string]any{"is_deleted": deleted, "trashed_at": at, "updated_at": time.Now().UTC()})

	return affected("set folder deleted", tx)
}

func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	return affected("delete folder", s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Folder{}))
}

func (s *Store) ListFolders(ctx context.Context, q store.ListQuery) ([]model.Folder, error) {
	out := make([]model.Folder, 0)
	if err := applyList(s.db.WithContext(ctx), q, "parent_id").Find(&out).Error; err != nil {
		return nil, translate("list folders", err)
	}

	return out, nil
}

// ---------------------------------------------------------------- files

func (s *Store) GetFile(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error; err != nil {
		return nil, translate("get file", err)
	}

	return &f, nil
}

func (s *Store) CreateFile(ctx context.Context, f *model.File) error {
	return translate("create file", s.db.WithContext(ctx).Create(f).Error)
}

func (s *Store) RenameFile(ctx context.Context, id, name string) error {
	tx := s.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Updates(map[string]any{"name": name, "updated_at": time.Now().UTC()})

	return affected("rename file", tx)
}

func (s *Store) MoveFile(ctx context.Context, id string, folderID *string) error {
	tx := s.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Updates(map[string]any{"folder_id": folderID, "updated_at": time.Now().UTC()})

	return affected("move file", tx)
}

func (s *Store) SetFileDeleted(ctx context.Context, id string, deleted bool, at *time.Time) error {
	tx := s.db.WithContext(ctx).Model(&model.File{}).Where("id = ?", id).
		Updates(map[string]any{"is_deleted": deleted, "trashed_at": at, "updated_at": time.Now().UTC()})

	return affected("set file deleted", tx)
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	return affected("delete file", s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.File{}))
}

func (s *Store) ListFiles(ctx context.Context, q store.ListQuery) ([]model.File, error) {
	out := make([]model.File, 0)
	if err := applyList(s.db.WithContext(ctx), q, "folder_id").Find(&out).Error; err != nil {
		return nil, translate("list files", err)
	}

	return out, nil
}
