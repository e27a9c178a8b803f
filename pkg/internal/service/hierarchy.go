package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/metrics"
)

// HierarchyGuard 在移动文件夹前检查是否会形成环.
type HierarchyGuard struct {
	store    store.FolderRepository
	maxDepth int
	log      *zerolog.Logger
}

// NewHierarchyGuard 创建层级校验器.
func NewHierarchyGuard(st store.FolderRepository, maxDepth int, log *zerolog.Logger) *HierarchyGuard {
	return &HierarchyGuard{store: st, maxDepth: maxDepth, log: log}
}

// WouldCreateCycle 把 folderID 挂到 proposedParentID 下是否会形成环.
// 祖先指针悬空时结束遍历并返回 false.
func (g *HierarchyGuard) WouldCreateCycle(ctx context.Context, folderID, proposedParentID string) (bool, error) {
	if folderID == proposedParentID {
		return true, nil
	}

	visited := make(map[string]struct{})
	cur := proposedParentID

	for depth := 0; ; depth++ {
		if depth > g.maxDepth {
			return false, g.corrupt(folderID, "depth ceiling exceeded")
		}

		if cur == folderID {
			return true, nil
		}

		if _, seen := visited[cur]; seen {
			return false, g.corrupt(folderID, "cycle at "+cur)
		}

		visited[cur] = struct{}{}

		f, err := g.store.GetFolder(ctx, cur)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}

		if err != nil {
			return false, apperr.ErrInternal.WithCause(err)
		}

		if f.ParentID == nil {
			return false, nil
		}

		cur = *f.ParentID
	}
}

func (g *HierarchyGuard) corrupt(folderID, detail string) error {
	metrics.IntegrityErrors.WithLabelValues("hierarchy").Inc()
	g.log.Error().Str("folder_id", folderID).Str("detail", detail).Msg("folder hierarchy corruption during cycle check")

	return apperr.ErrIntegrity.WithMessage("folder hierarchy is corrupted: %s", detail)
}

// CheckMove 按顺序校验自引用与环.
func (g *HierarchyGuard) CheckMove(ctx context.Context, folderID, proposedParentID string) error {
	if folderID == proposedParentID {
		return apperr.ErrCannotMoveIntoSelf
	}

	cycle, err := g.WouldCreateCycle(ctx, folderID, proposedParentID)
	if err != nil {
		return err
	}

	if cycle {
		return apperr.ErrWouldCreateCycle
	}

	return nil
}
