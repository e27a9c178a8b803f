package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/metrics"
	"github.com/yeisme/drivevault/pkg/queue"
	"github.com/yeisme/drivevault/pkg/tracing"
)

// PurgeReport 一次永久删除的结果.
type PurgeReport struct {
	FileIDs      []string `json:"file_ids"`
	FolderIDs    []string `json:"folder_ids"`
	Skipped      []string `json:"skipped,omitempty"`
	BlobFailures []string `json:"blob_failures,omitempty"`
}

func (r *PurgeReport) merge(o *PurgeReport) {
	r.FileIDs = append(r.FileIDs, o.FileIDs...)
	r.FolderIDs = append(r.FolderIDs, o.FolderIDs...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.BlobFailures = append(r.BlobFailures, o.BlobFailures...)
}

// Total 被删除的资源数.
func (r *PurgeReport) Total() int {
	return len(r.FileIDs) + len(r.FolderIDs)
}

// CascadeEngine 回收站的恢复与永久删除.
type CascadeEngine struct {
	store    store.Store
	blobs    store.BlobStore
	links    *LinkShareService
	activity *ActivityRecorder
	events   *events
	now      Clock
	log      *zerolog.Logger
	maxDepth int
	timeout  time.Duration
}

// NewCascadeEngine 创建级联引擎.
func NewCascadeEngine(deps Deps, opts Options, activity *ActivityRecorder, ev *events, links *LinkShareService) *CascadeEngine {
	return &CascadeEngine{
		store:    deps.Store,
		blobs:    deps.Blobs,
		links:    links,
		activity: activity,
		events:   ev,
		now:      deps.Now,
		log:      deps.Logger,
		maxDepth: opts.MaxDepth,
		timeout:  opts.OperationTimeout,
	}
}

// loadOwned 读取资源并校验所有权与回收站状态.
func (c *CascadeEngine) loadOwned(ctx context.Context, rt model.ResourceType, id, callerID string) (model.Resource, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if err := validType(rt); err != nil {
		return nil, err
	}

	res, err := loadResource(ctx, c.store, rt, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	if res.Owner() != callerID {
		return nil, apperr.ErrForbidden.WithMessage("only the owner can restore or purge")
	}

	if !res.Trashed() {
		return nil, apperr.ErrNotInTrash
	}

	return res, nil
}

// Restore 只恢复节点本身，不处理子项.
func (c *CascadeEngine) Restore(ctx context.Context, rt model.ResourceType, id, callerID string) error {
	if _, err := c.loadOwned(ctx, rt, id, callerID); err != nil {
		return err
	}

	var err error
	if rt == model.ResourceFolder {
		err = c.store.SetFolderDeleted(ctx, id, false, nil)
	} else {
		err = c.store.SetFileDeleted(ctx, id, false, nil)
	}

	if err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	c.activity.record(ctx, callerID, model.ActionRestore, rt, id, nil)
	emit(ctx, c.events, queue.TopicResourceRestored, queue.ResourceChangedPayload{
		Resource: resourceRef(rt, id),
		ActorID:  callerID,
	})

	return nil
}

// Purge 永久删除回收站中的节点，文件夹连同其子树一起删除.
// 操作脱离调用方的取消信号，客户端断开不会中断删除.
func (c *CascadeEngine) Purge(ctx context.Context, rt model.ResourceType, id, callerID string) (*PurgeReport, error) {
	ctx, cancel := detached(ctx, c.timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "cascade.purge")
	defer span.End()

	res, err := c.loadOwned(ctx, rt, id, callerID)
	if err != nil {
		return nil, err
	}

	return c.purgeRoot(ctx, res, callerID)
}

// EmptyTrash 清空调用者的回收站. 已随上级子树删除的条目会被跳过.
func (c *CascadeEngine) EmptyTrash(ctx context.Context, callerID string) (*PurgeReport, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	ctx, cancel := detached(ctx, c.timeout)
	defer cancel()

	deleted := true

	return c.purgeMatching(ctx, store.ListQuery{OwnerID: callerID, Deleted: &deleted})
}

// PurgeExpired 删除 before 之前移入回收站的条目，每项以其所有者身份执行.
func (c *CascadeEngine) PurgeExpired(ctx context.Context, before time.Time) (*PurgeReport, error) {
	ctx, cancel := detached(ctx, c.timeout)
	defer cancel()

	deleted := true

	return c.purgeMatching(ctx, store.ListQuery{Deleted: &deleted, TrashedBefore: &before})
}

func (c *CascadeEngine) purgeMatching(ctx context.Context, q store.ListQuery) (*PurgeReport, error) {
	folders, err := c.store.ListFolders(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	files, err := c.store.ListFiles(ctx, q)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	total := &PurgeReport{}

	var errs []error

	for i := range folders {
		// 重新读取，可能已随前一个子树删除
		f, err := c.store.GetFolder(ctx, folders[i].ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}

		if err != nil {
			errs = append(errs, err)

			continue
		}

		r, err := c.purgeRoot(ctx, f, f.OwnerID)
		if r != nil {
			total.merge(r)
		}

		if err != nil {
			errs = append(errs, err)
		}
	}

	for i := range files {
		f, err := c.store.GetFile(ctx, files[i].ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}

		if err != nil {
			errs = append(errs, err)

			continue
		}

		r, err := c.purgeRoot(ctx, f, f.OwnerID)
		if r != nil {
			total.merge(r)
		}

		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return total, storeErr(errors.Join(errs...), apperr.ErrNotFound)
	}

	return total, nil
}

func (c *CascadeEngine) purgeRoot(ctx context.Context, res model.Resource, ownerID string) (*PurgeReport, error) {
	start := time.Now()
	report := &PurgeReport{}

	var err error

	switch r := res.(type) {
	case *model.File:
		err = c.purgeFile(ctx, r, report)
	case *model.Folder:
		err = c.purgeFolder(ctx, r, ownerID, report)
	}

	metrics.PurgedResources.WithLabelValues(string(model.ResourceFile)).Add(float64(len(report.FileIDs)))
	metrics.PurgedResources.WithLabelValues(string(model.ResourceFolder)).Add(float64(len(report.FolderIDs)))

	if report.Total() > 0 {
		c.activity.record(ctx, ownerID, model.ActionPurge, res.ResourceType(), res.ResourceID(), map[string]any{
			"files":   len(report.FileIDs),
			"folders": len(report.FolderIDs),
			"skipped": len(report.Skipped),
		})
		emit(ctx, c.events, queue.TopicResourcePurged, queue.ResourcePurgedPayload{
			Root:         resourceRef(res.ResourceType(), res.ResourceID()),
			ActorID:      ownerID,
			FileIDs:      report.FileIDs,
			FolderIDs:    report.FolderIDs,
			Skipped:      report.Skipped,
			BlobFailures: report.BlobFailures,
			DurationMS:   time.Since(start).Milliseconds(),
		})
	}

	return report, err
}

// purgeFile 对象删除失败只记录，继续删除元数据.
func (c *CascadeEngine) purgeFile(ctx context.Context, f *model.File, report *PurgeReport) error {
	if err := c.blobs.RemoveObject(ctx, f.StorageKey); err != nil {
		c.log.Warn().Err(err).Str("file_id", f.ID).Str("storage_key", f.StorageKey).Msg("blob delete failed during purge")
		report.BlobFailures = append(report.BlobFailures, f.StorageKey)
	}

	c.dropDependents(ctx, model.ResourceFile, f.ID)

	if err := c.store.DeleteFile(ctx, f.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr(err, apperr.ErrNotFound)
	}

	report.FileIDs = append(report.FileIDs, f.ID)

	return nil
}

// dropDependents 删除授权、链接与收藏，失败只记录.
func (c *CascadeEngine) dropDependents(ctx context.Context, rt model.ResourceType, id string) {
	l := c.log.With().Str("resource", refOf(rt, id)).Logger()

	if _, err := c.store.DeleteSharesByResource(ctx, rt, id); err != nil {
		l.Warn().Err(err).Msg("share cleanup failed during purge")
	}

	if _, err := c.links.DeleteForResource(ctx, rt, id); err != nil {
		l.Warn().Err(err).Msg("link cleanup failed during purge")
	}

	if _, err := c.store.DeleteStarsByResource(ctx, rt, id); err != nil {
		l.Warn().Err(err).Msg("star cleanup failed during purge")
	}
}

type purgeFrame struct {
	folder   model.Folder
	depth    int
	expanded bool
}

// purgeFolder 用显式栈后序删除子树，只处理 ownerID 拥有的子项.
func (c *CascadeEngine) purgeFolder(ctx context.Context, root *model.Folder, ownerID string, report *PurgeReport) error {
	stack := []purgeFrame{{folder: *root}}
	visited := make(map[string]struct{})
	onlyByParent := func(id string) store.ListQuery {
		return store.ListQuery{ByParent: true, ParentID: &id}
	}

	for len(stack) > 0 {
		top := len(stack) - 1
		frame := stack[top]

		if frame.expanded {
			stack = stack[:top]

			c.dropDependents(ctx, model.ResourceFolder, frame.folder.ID)

			if err := c.store.DeleteFolder(ctx, frame.folder.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return storeErr(err, apperr.ErrNotFound)
			}

			report.FolderIDs = append(report.FolderIDs, frame.folder.ID)

			continue
		}

		stack[top].expanded = true

		if frame.depth > c.maxDepth {
			return c.corrupt(root.ID, "depth ceiling exceeded")
		}

		if _, seen := visited[frame.folder.ID]; seen {
			return c.corrupt(root.ID, "cycle at "+frame.folder.ID)
		}

		visited[frame.folder.ID] = struct{}{}

		files, err := c.store.ListFiles(ctx, onlyByParent(frame.folder.ID))
		if err != nil {
			return storeErr(err, apperr.ErrNotFound)
		}

		for i := range files {
			if files[i].OwnerID != ownerID {
				report.Skipped = append(report.Skipped, files[i].ID)

				continue
			}

			if err := c.purgeFile(ctx, &files[i], report); err != nil {
				return err
			}
		}

		folders, err := c.store.ListFolders(ctx, onlyByParent(frame.folder.ID))
		if err != nil {
			return storeErr(err, apperr.ErrNotFound)
		}

		for _, child := range folders {
			if child.OwnerID != ownerID {
				report.Skipped = append(report.Skipped, child.ID)

				continue
			}

			stack = append(stack, purgeFrame{folder: child, depth: frame.depth + 1})
		}
	}

	return nil
}

func (c *CascadeEngine) corrupt(rootID, detail string) error {
	metrics.IntegrityErrors.WithLabelValues("cascade").Inc()
	c.log.Error().Str("folder_id", rootID).Str("detail", detail).Msg("folder hierarchy corruption during purge")

	return apperr.ErrIntegrity.WithMessage("folder hierarchy is corrupted: %s", detail)
}
