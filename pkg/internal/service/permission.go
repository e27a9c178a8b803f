package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/metrics"
	"github.com/yeisme/drivevault/pkg/tracing"
)

// 判定原因.
const (
	ReasonShare    = "share"
	ReasonOwner    = "owner"
	ReasonNoGrant  = "no_grant"
	ReasonNotFound = "not_found"
	ReasonDangling = "dangling"
)

// Decision 一次权限判定的结果.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Role    model.Role `json:"role,omitempty"`
	Reason  string     `json:"reason"`
}

// PermissionResolver 沿父链向上查找 Share 或所有权，确定调用者的有效角色.
type PermissionResolver struct {
	store    store.Store
	maxDepth int
	log      *zerolog.Logger
}

// NewPermissionResolver 创建权限解析器.
func NewPermissionResolver(st store.Store, maxDepth int, log *zerolog.Logger) *PermissionResolver {
	return &PermissionResolver{store: st, maxDepth: maxDepth, log: log}
}

// Resolve 判定 callerID 是否对资源具有 required 角色.
//
// 每一层先查 Share，不足时再看所有权，然后上移到父文件夹.
// 到达根或父节点缺失时拒绝，出现环或超过深度上限时返回 ErrIntegrity.
func (p *PermissionResolver) Resolve(ctx context.Context, rt model.ResourceType, id, callerID string, required model.Role) (Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "permission.resolve", trace.WithAttributes(
		attribute.String("resource.type", string(rt)),
		attribute.String("resource.id", id),
		attribute.String("permission.required", string(required)),
	))

	d, err := p.resolve(ctx, rt, id, callerID, required)
	tracing.EndSpan(span, err, attribute.Bool("permission.allowed", d.Allowed), attribute.String("permission.reason", d.Reason))

	switch {
	case err != nil:
		metrics.PermissionDecisions.WithLabelValues("error").Inc()
	case d.Allowed:
		metrics.PermissionDecisions.WithLabelValues("allowed").Inc()
	default:
		metrics.PermissionDecisions.WithLabelValues("denied").Inc()
	}

	return d, err
}

func (p *PermissionResolver) resolve(ctx context.Context, rt model.ResourceType, id, callerID string, required model.Role) (Decision, error) {
	if required != model.RoleViewer && required != model.RoleEditor {
		return Decision{}, apperr.ErrInvalidInput.WithMessage("required role must be viewer or editor, got %q", required)
	}

	if err := validType(rt); err != nil {
		return Decision{}, err
	}

	if callerID == "" {
		return Decision{Reason: ReasonNoGrant}, nil
	}

	visited := make(map[string]struct{})
	curType, curID := rt, id

	for depth := 0; ; depth++ {
		if depth > p.maxDepth {
			return Decision{}, p.corrupt(rt, id, "depth ceiling exceeded")
		}

		if curType == model.ResourceFolder {
			if _, seen := visited[curID]; seen {
				return Decision{}, p.corrupt(rt, id, "cycle at "+curID)
			}

			visited[curID] = struct{}{}
		}

		share, err := p.store.FindShare(ctx, curType, curID, callerID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return Decision{}, apperr.ErrInternal.WithCause(err)
		}

		if share != nil && share.Role.Satisfies(required) {
			return Decision{Allowed: true, Role: share.Role, Reason: ReasonShare}, nil
		}

		res, err := loadResource(ctx, p.store, curType, curID)
		if errors.Is(err, store.ErrNotFound) {
			if depth == 0 {
				return Decision{Reason: ReasonNotFound}, nil
			}

			return Decision{Reason: ReasonDangling}, nil
		}

		if err != nil {
			return Decision{}, apperr.ErrInternal.WithCause(err)
		}

		if res.Owner() == callerID {
			return Decision{Allowed: true, Role: model.RoleOwner, Reason: ReasonOwner}, nil
		}

		parent := res.Parent()
		if parent == nil {
			return Decision{Reason: ReasonNoGrant}, nil
		}

		curType, curID = model.ResourceFolder, *parent
	}
}

func (p *PermissionResolver) corrupt(rt model.ResourceType, id, detail string) error {
	metrics.IntegrityErrors.WithLabelValues("permission").Inc()
	p.log.Error().
		Str("resource", refOf(rt, id)).
		Str("detail", detail).
		Msg("folder hierarchy corruption during permission walk")

	return apperr.ErrIntegrity.WithMessage("folder hierarchy is corrupted: %s", detail)
}

// Require 拒绝时返回 ErrForbidden，目标不存在时返回 ErrNotFound.
func (p *PermissionResolver) Require(ctx context.Context, rt model.ResourceType, id, callerID string, required model.Role) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	d, err := p.Resolve(ctx, rt, id, callerID, required)
	if err != nil {
		return err
	}

	if d.Allowed {
		return nil
	}

	if d.Reason == ReasonNotFound {
		return apperr.ErrNotFound
	}

	return apperr.ErrForbidden
}
