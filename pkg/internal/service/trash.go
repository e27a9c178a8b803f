package service

import (
	"context"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// TrashService 回收站列表与操作入口.
type TrashService struct {
	store   store.Store
	cascade *CascadeEngine
}

// List 调用者回收站中的文件夹与文件.
func (s *TrashService) List(ctx context.Context, callerID string) (*Listing, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	deleted := true
	q := store.ListQuery{OwnerID: callerID, Deleted: &deleted}

	folders, err := s.store.ListFolders(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	files, err := s.store.ListFiles(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	return &Listing{Folders: folders, Files: files}, nil
}

// Restore 见 CascadeEngine.Restore.
func (s *TrashService) Restore(ctx context.Context, rt model.ResourceType, id, callerID string) error {
	return s.cascade.Restore(ctx, rt, id, callerID)
}

// Purge 见 CascadeEngine.Purge.
func (s *TrashService) Purge(ctx context.Context, rt model.ResourceType, id, callerID string) (*PurgeReport, error) {
	return s.cascade.Purge(ctx, rt, id, callerID)
}

// Empty 清空回收站.
func (s *TrashService) Empty(ctx context.Context, callerID string) (*PurgeReport, error) {
	return s.cascade.EmptyTrash(ctx, callerID)
}
