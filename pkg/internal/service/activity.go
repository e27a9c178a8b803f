package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/queue"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// ActivityRecorder 写入审计记录并发布 dv.activity.recorded.
type ActivityRecorder struct {
	store  store.Store
	events *events
	now    Clock
	log    *zerolog.Logger
	perms  *PermissionResolver
}

// NewActivityRecorder 创建审计记录器.
func NewActivityRecorder(st store.Store, ev *events, now Clock, log *zerolog.Logger) *ActivityRecorder {
	return &ActivityRecorder{store: st, events: ev, now: now, log: log}
}

// Record 追加一条审计记录. 返回的错误由调用方记录后丢弃，不影响主操作.
func (a *ActivityRecorder) Record(ctx context.Context, actorID, action string, rt model.ResourceType, id string, extra map[string]any) error {
	var raw string

	if len(extra) > 0 {
		b, err := sonic.Marshal(extra)
		if err != nil {
			return fmt.Errorf("encode activity context: %w", err)
		}

		raw = string(b)
	}

	act := &model.Activity{
		ID:           model.NewID(model.PrefixActivity),
		ActorID:      actorID,
		Action:       action,
		ResourceType: rt,
		ResourceID:   id,
		Context:      raw,
		CreatedAt:    a.now(),
	}

	if err := a.store.AppendActivity(ctx, act); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	return publish(ctx, a.events, queue.TopicActivityRecorded, queue.ActivityPayload{
		ActivityID: act.ID,
		ActorID:    actorID,
		Action:     action,
		Resource:   resourceRef(rt, id),
		Context:    extra,
	})
}

// record 是 Record 的日志版本，用于主操作成功之后.
func (a *ActivityRecorder) record(ctx context.Context, actorID, action string, rt model.ResourceType, id string, extra map[string]any) {
	if err := a.Record(ctx, actorID, action, rt, id, extra); err != nil {
		a.log.Warn().Err(err).
			Str("action", action).
			Str("resource", refOf(rt, id)).
			Msg("activity not recorded")
	}
}

// ListMine 调用者自己的动态.
func (a *ActivityRecorder) ListMine(ctx context.Context, callerID string, limit int) ([]model.Activity, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	items, err := a.store.ListActivities(ctx, store.ActivityQuery{ActorID: callerID, Limit: clampLimit(limit)})

	return items, storeErr(err, apperr.ErrNotFound)
}

// ListForResource 资源的动态，需要 viewer.
func (a *ActivityRecorder) ListForResource(ctx context.Context, rt model.ResourceType, id, callerID string, limit int) ([]model.Activity, error) {
	if err := a.perms.Require(ctx, rt, id, callerID, model.RoleViewer); err != nil {
		return nil, err
	}

	items, err := a.store.ListActivities(ctx, store.ActivityQuery{ResourceType: rt, ResourceID: id, Limit: clampLimit(limit)})

	return items, storeErr(err, apperr.ErrNotFound)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}

	if limit > maxActivityLimit {
		return maxActivityLimit
	}

	return limit
}
