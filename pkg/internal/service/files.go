package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/queue"
)

// UploadInput 上传参数.
type UploadInput struct {
	Name        string
	FolderID    *string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileView 文件元数据与下载地址.
type FileView struct {
	*model.File
	DownloadURL string `json:"download_url,omitempty"`
}

// FileService 文件上传、读取与变更.
type FileService struct {
	store         store.Store
	blobs         store.BlobStore
	perms         *PermissionResolver
	activity      *ActivityRecorder
	events        *events
	now           Clock
	presignExpiry time.Duration
	maxUpload     int64
	log           *zerolog.Logger
}

// objectKey user/2006/01/fileID，只按月分目录.
func objectKey(ownerID, fileID string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s", ownerID, now.UTC().Format("2006/01"), fileID)
}

// MaxUploadBytes 单个文件的上传上限，0 表示不限制.
func (s *FileService) MaxUploadBytes() int64 {
	return s.maxUpload
}

// Upload 先写对象再写元数据，元数据写入失败时尽力删除对象.
func (s *FileService) Upload(ctx context.Context, callerID string, in UploadInput) (*model.File, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if err := checkName(in.Name); err != nil {
		return nil, err
	}

	if in.Body == nil {
		return nil, apperr.ErrInvalidInput.WithMessage("file content is required")
	}

	if s.maxUpload > 0 && in.Size > s.maxUpload {
		return nil, apperr.ErrFileTooLarge.WithMessage("file exceeds the %d byte upload limit", s.maxUpload)
	}

	if in.FolderID != nil {
		if err := requireDestination(ctx, s.store, s.perms, *in.FolderID, callerID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	f := &model.File{
		ID:        model.NewID(model.PrefixFile),
		OwnerID:   callerID,
		FolderID:  in.FolderID,
		Name:      in.Name,
		MimeType:  in.ContentType,
		SizeBytes: in.Size,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.StorageKey = objectKey(callerID, f.ID, now)

	if f.MimeType == "" {
		f.MimeType = "application/octet-stream"
	}

	if err := s.blobs.PutObject(ctx, f.StorageKey, in.Body, in.Size, f.MimeType); err != nil {
		return nil, apperr.ErrInternal.WithMessage("store file content").WithCause(err)
	}

	if err := s.store.CreateFile(ctx, f); err != nil {
		if rmErr := s.blobs.RemoveObject(ctx, f.StorageKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("storage_key", f.StorageKey).Msg("orphan blob left after failed upload")
		}

		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionUpload, model.ResourceFile, f.ID, map[string]any{
		"name": f.Name,
		"size": f.SizeBytes,
	})

	return f, nil
}

// Get 需要 viewer，附带预签名下载地址.
func (s *FileService) Get(ctx context.Context, id, callerID string) (*FileView, error) {
	if err := s.perms.Require(ctx, model.ResourceFile, id, callerID, model.RoleViewer); err != nil {
		return nil, err
	}

	f, err := s.liveFile(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.blobs.PresignGet(ctx, f.StorageKey, store.PresignOptions{FileName: f.Name, Expiry: s.presignExpiry})
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}

	return &FileView{File: f, DownloadURL: url}, nil
}

func (s *FileService) liveFile(ctx context.Context, id string) (*model.File, error) {
	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	if f.IsDeleted {
		return nil, apperr.ErrNotFound
	}

	return f, nil
}

func (s *FileService) editable(ctx context.Context, id, callerID string) (*model.File, error) {
	if err := s.perms.Require(ctx, model.ResourceFile, id, callerID, model.RoleEditor); err != nil {
		return nil, err
	}

	return s.liveFile(ctx, id)
}

// Rename 需要 editor.
func (s *FileService) Rename(ctx context.Context, id, callerID, name string) (*model.File, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	f, err := s.editable(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RenameFile(ctx, id, name); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionRename, model.ResourceFile, id, map[string]any{"from": f.Name, "to": name})

	f.Name = name
	f.UpdatedAt = s.now()

	return f, nil
}

// Move 目标文件夹必须存在、未删除且调用者具有 editor. 移到根目录需要所有权.
func (s *FileService) Move(ctx context.Context, id, callerID string, folderID *string) (*model.File, error) {
	f, err := s.editable(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if folderID != nil {
		if err := requireDestination(ctx, s.store, s.perms, *folderID, callerID); err != nil {
			return nil, err
		}
	} else if f.OwnerID != callerID {
		return nil, apperr.ErrForbidden.WithMessage("only the owner can move a file to the root")
	}

	if err := s.store.MoveFile(ctx, id, folderID); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionMove, model.ResourceFile, id, map[string]any{
		"from": f.FolderID,
		"to":   folderID,
	})
	emit(ctx, s.events, queue.TopicResourceMoved, queue.ResourceChangedPayload{
		Resource:    resourceRef(model.ResourceFile, id),
		ActorID:     callerID,
		NewParentID: folderID,
	})

	f.FolderID = folderID
	f.UpdatedAt = s.now()

	return f, nil
}

// Trash 软删除，需要 editor.
func (s *FileService) Trash(ctx context.Context, id, callerID string) error {
	if err := s.perms.Require(ctx, model.ResourceFile, id, callerID, model.RoleEditor); err != nil {
		return err
	}

	f, err := s.store.GetFile(ctx, id)
	if err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	if f.IsDeleted {
		return apperr.ErrAlreadyInTrash
	}

	at := s.now()
	if err := s.store.SetFileDeleted(ctx, id, true, &at); err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionTrash, model.ResourceFile, id, nil)
	emit(ctx, s.events, queue.TopicResourceTrashed, queue.ResourceChangedPayload{
		Resource: resourceRef(model.ResourceFile, id),
		ActorID:  callerID,
	})

	return nil
}
