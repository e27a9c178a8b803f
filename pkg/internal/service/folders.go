package service

import (
	"context"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/queue"
	"github.com/yeisme/drivevault/pkg/rule"
	"github.com/yeisme/drivevault/pkg/tracing"
)

// Listing 文件夹内容.
type Listing struct {
	Folders []model.Folder `json:"folders"`
	Files   []model.File   `json:"files"`
}

// liveChildren 列出未删除的直接子项.
func liveChildren(ctx context.Context, st store.Store, parentID string) (*Listing, error) {
	live := false
	q := store.ListQuery{ByParent: true, ParentID: &parentID, Deleted: &live}

	folders, err := st.ListFolders(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	files, err := st.ListFiles(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	return &Listing{Folders: folders, Files: files}, nil
}

func checkName(name string) error {
	if !rule.ValidName(name) {
		return apperr.ErrInvalidInput.WithMessage("invalid name %q", name)
	}

	return nil
}

// FolderService 文件夹的增删改查与移动.
type FolderService struct {
	store    store.Store
	perms    *PermissionResolver
	guard    *HierarchyGuard
	activity *ActivityRecorder
	events   *events
	now      Clock
}

// liveFolder 读取未删除的文件夹.
func (s *FolderService) liveFolder(ctx context.Context, id string) (*model.Folder, error) {
	f, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	if f.IsDeleted {
		return nil, apperr.ErrNotFound
	}

	return f, nil
}

// requireDestination 目标文件夹必须存在、未删除且调用者具有 editor.
func requireDestination(ctx context.Context, st store.Store, perms *PermissionResolver, parentID, callerID string) error {
	dest, err := st.GetFolder(ctx, parentID)
	if err != nil {
		return storeErr(err, apperr.ErrNotFound.WithMessage("destination folder not found"))
	}

	if dest.IsDeleted {
		return apperr.ErrNotFound.WithMessage("destination folder not found")
	}

	return perms.Require(ctx, model.ResourceFolder, parentID, callerID, model.RoleEditor)
}

// Create 新建文件夹，所有者为调用者. 指定父目录时需要其 editor 权限.
func (s *FolderService) Create(ctx context.Context, callerID, name string, parentID *string) (*model.Folder, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if err := checkName(name); err != nil {
		return nil, err
	}

	if parentID != nil {
		if err := requireDestination(ctx, s.store, s.perms, *parentID, callerID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	f := &model.Folder{
		ID:        model.NewID(model.PrefixFolder),
		OwnerID:   callerID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateFolder(ctx, f); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionCreate, model.ResourceFolder, f.ID, map[string]any{"name": name})

	return f, nil
}

// Get 需要 viewer.
func (s *FolderService) Get(ctx context.Context, id, callerID string) (*model.Folder, error) {
	if err := s.perms.Require(ctx, model.ResourceFolder, id, callerID, model.RoleViewer); err != nil {
		return nil, err
	}

	return s.liveFolder(ctx, id)
}

// List 列出子项. parentID 为空时返回调用者自己的根目录内容.
func (s *FolderService) List(ctx context.Context, callerID string, parentID *string) (*Listing, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if parentID == nil {
		live := false
		q := store.ListQuery{OwnerID: callerID, ByParent: true, Deleted: &live}

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

	if _, err := s.Get(ctx, *parentID, callerID); err != nil {
		return nil, err
	}

	return liveChildren(ctx, s.store, *parentID)
}

// Rename 需要 editor.
func (s *FolderService) Rename(ctx context.Context, id, callerID, name string) (*model.Folder, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	f, err := s.editable(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RenameFolder(ctx, id, name); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionRename, model.ResourceFolder, id, map[string]any{"from": f.Name, "to": name})

	f.Name = name
	f.UpdatedAt = s.now()

	return f, nil
}

func (s *FolderService) editable(ctx context.Context, id, callerID string) (*model.Folder, error) {
	if err := s.perms.Require(ctx, model.ResourceFolder, id, callerID, model.RoleEditor); err != nil {
		return nil, err
	}

	return s.liveFolder(ctx, id)
}

// Move 把文件夹移到 parentID 下，nil 表示根目录.
//
// 依次检查：自引用、成环、目标存在且未删除、目标 editor 权限. 移到根目录需要所有权.
func (s *FolderService) Move(ctx context.Context, id, callerID string, parentID *string) (*model.Folder, error) {
	ctx, span := tracing.StartSpan(ctx, "folder.move")
	defer span.End()

	f, err := s.editable(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		if err := s.guard.CheckMove(ctx, id, *parentID); err != nil {
			return nil, err
		}

		if err := requireDestination(ctx, s.store, s.perms, *parentID, callerID); err != nil {
			return nil, err
		}
	} else if f.OwnerID != callerID {
		return nil, apperr.ErrForbidden.WithMessage("only the owner can move a folder to the root")
	}

	if err := s.store.MoveFolder(ctx, id, parentID); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionMove, model.ResourceFolder, id, map[string]any{
		"from": f.ParentID,
		"to":   parentID,
	})
	emit(ctx, s.events, queue.TopicResourceMoved, queue.ResourceChangedPayload{
		Resource:    resourceRef(model.ResourceFolder, id),
		ActorID:     callerID,
		NewParentID: parentID,
	})

	f.ParentID = parentID
	f.UpdatedAt = s.now()

	return f, nil
}

// Trash 软删除，需要 editor. 子项保持原状，通过父节点被隐藏.
func (s *FolderService) Trash(ctx context.Context, id, callerID string) error {
	if err := s.perms.Require(ctx, model.ResourceFolder, id, callerID, model.RoleEditor); err != nil {
		return err
	}

	f, err := s.store.GetFolder(ctx, id)
	if err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	if f.IsDeleted {
		return apperr.ErrAlreadyInTrash
	}

	at := s.now()
	if err := s.store.SetFolderDeleted(ctx, id, true, &at); err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionTrash, model.ResourceFolder, id, nil)
	emit(ctx, s.events, queue.TopicResourceTrashed, queue.ResourceChangedPayload{
		Resource: resourceRef(model.ResourceFolder, id),
		ActorID:  callerID,
	})

	return nil
}
