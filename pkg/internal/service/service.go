// Package service 实现层级访问控制与完整性引擎：权限解析、移动校验、级联删除、公开链接与限流，
// 以及构建在其上的文件夹、文件、协作者、收藏与回收站服务.
//
// 所有组件通过 Deps 显式接收依赖，调用者身份以 callerID 参数传入，不从上下文隐式读取.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	nlog "github.com/yeisme/drivevault/pkg/log"
)

// LinkCacheNamespace 链接缓存在 KV 中的键前缀，键名需兼容 NATS KV 的字符集.
const LinkCacheNamespace = "dv.links.v1"

// Clock 返回当前时间，测试中可替换.
type Clock func() time.Time

// Options 各组件的边界与参数，由配置构造一次后传入.
type Options struct {
	MaxDepth         int
	OperationTimeout time.Duration

	LinkTokenLength    int
	PasswordIterations int
	SaltBytes          int
	PresignExpiry      time.Duration
	LinkCacheTTL       time.Duration
	MaxUploadBytes     int64

	RateLimitEnabled bool
	RateWindow       time.Duration
	RateMax          int
	SweepProbability float64

	TrashRetention time.Duration

	EventsEnabled  bool
	ActivityEvents bool
	LinkEvents     bool
	PurgeEvents    bool
}

// DefaultOptions 与配置默认值一致.
func DefaultOptions() Options {
	return Options{
		MaxDepth:           configs.DefaultAccessMaxDepth,
		OperationTimeout:   configs.DefaultAccessOperationTimeout,
		LinkTokenLength:    configs.DefaultLinkTokenLength,
		PasswordIterations: configs.DefaultLinkPasswordIterations,
		SaltBytes:          configs.DefaultLinkSaltBytes,
		PresignExpiry:      configs.DefaultLinkPresignExpiry,
		LinkCacheTTL:       configs.DefaultLinkCacheTTL,
		MaxUploadBytes:     configs.DefaultServerMaxUploadMB << 20,
		RateLimitEnabled:   configs.DefaultRateLimitEnabled,
		RateWindow:         configs.DefaultRateLimitWindow,
		RateMax:            configs.DefaultRateLimitMaxRequests,
		SweepProbability:   configs.DefaultRateLimitSweepProbability,
		TrashRetention:     time.Duration(configs.DefaultTrashRetentionDays) * 24 * time.Hour,
		EventsEnabled:      true,
		ActivityEvents:     true,
		LinkEvents:         true,
		PurgeEvents:        true,
	}
}

// OptionsFromConfig 从应用配置构造 Options.
func OptionsFromConfig(cfg *configs.AppConfig) Options {
	return Options{
		MaxDepth:           cfg.Access.MaxDepth,
		OperationTimeout:   cfg.Access.OperationTimeout,
		LinkTokenLength:    cfg.Link.TokenLength,
		PasswordIterations: cfg.Link.PasswordIterations,
		SaltBytes:          cfg.Link.SaltBytes,
		PresignExpiry:      cfg.Link.PresignExpiry,
		LinkCacheTTL:       cfg.Link.CacheTTL,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes(),
		RateLimitEnabled:   cfg.RateLimit.Enabled,
		RateWindow:         cfg.RateLimit.Window,
		RateMax:            cfg.RateLimit.MaxRequests,
		SweepProbability:   cfg.RateLimit.SweepProbability,
		TrashRetention:     time.Duration(cfg.Trash.RetentionDays) * 24 * time.Hour,
		EventsEnabled:      cfg.Events.Enabled,
		ActivityEvents:     cfg.Events.Activity,
		LinkEvents:         cfg.Events.Links,
		PurgeEvents:        cfg.Events.Purge,
	}
}

// Deps 外部协作者. Cache 与 Publisher 可为 nil.
type Deps struct {
	Store     store.Store
	Blobs     store.BlobStore
	Cache     *cache.Cache
	Publisher message.Publisher
	Now       Clock
	Logger    *zerolog.Logger
}

// Services 全部服务的集合.
type Services struct {
	Permissions *PermissionResolver
	Hierarchy   *HierarchyGuard
	Cascade     *CascadeEngine
	Links       *LinkShareService
	RateLimiter *RateLimiter
	Activity    *ActivityRecorder
	Folders     *FolderService
	Files       *FileService
	Shares      *ShareService
	Stars       *StarService
	Trash       *TrashService
}

// New 组装全部服务.
func New(deps Deps, opts Options) *Services {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}

	if deps.Logger == nil {
		deps.Logger = nlog.Logger()
	}

	if opts.MaxDepth <= 0 {
		opts.MaxDepth = configs.DefaultAccessMaxDepth
	}

	ev := newEvents(deps.Publisher, opts, deps.Logger)
	activity := NewActivityRecorder(deps.Store, ev, deps.Now, deps.Logger)
	perms := NewPermissionResolver(deps.Store, opts.MaxDepth, deps.Logger)
	guard := NewHierarchyGuard(deps.Store, opts.MaxDepth, deps.Logger)
	activity.perms = perms
	links := NewLinkShareService(deps, opts, activity, ev)
	cascade := NewCascadeEngine(deps, opts, activity, ev, links)

	s := &Services{
		Permissions: perms,
		Hierarchy:   guard,
		Cascade:     cascade,
		Links:       links,
		RateLimiter: NewRateLimiter(deps.Store, opts, deps.Now, deps.Logger),
		Activity:    activity,
	}

	s.Folders = &FolderService{store: deps.Store, perms: perms, guard: guard, activity: activity, events: ev, now: deps.Now}
	s.Files = &FileService{store: deps.Store, blobs: deps.Blobs, perms: perms, activity: activity, events: ev, now: deps.Now, presignExpiry: opts.PresignExpiry, maxUpload: opts.MaxUploadBytes, log: deps.Logger}
	s.Shares = &ShareService{store: deps.Store, perms: perms, activity: activity, events: ev, now: deps.Now}
	s.Stars = &StarService{store: deps.Store, perms: perms, now: deps.Now}
	s.Trash = &TrashService{store: deps.Store, cascade: cascade}

	return s
}

// loadResource 读取文件或文件夹，不存在时返回 store.ErrNotFound.
func loadResource(ctx context.Context, st store.Store, rt model.ResourceType, id string) (model.Resource, error) {
	switch rt {
	case model.ResourceFolder:
		f, err := st.GetFolder(ctx, id)
		if err != nil {
			return nil, err
		}

		return f, nil
	case model.ResourceFile:
		f, err := st.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}

		return f, nil
	default:
		return nil, apperr.ErrInvalidInput.WithMessage("unknown resource type %q", rt)
	}
}

// storeErr 把仓储错误映射为业务错误.
func storeErr(err error, notFound *apperr.Error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound
	case errors.Is(err, store.ErrDuplicate):
		return apperr.New(apperr.KindConflict, "CONFLICT", "resource already exists").WithCause(err)
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}

		return apperr.ErrInternal.WithCause(err)
	}
}

// requireCaller 未认证时返回 Unauthenticated.
func requireCaller(callerID string) error {
	if callerID == "" {
		return apperr.ErrUnauthenticated
	}

	return nil
}

// validType 校验资源类型.
func validType(rt model.ResourceType) error {
	if !rt.Valid() {
		return apperr.ErrInvalidInput.WithMessage("unknown resource type %q", rt)
	}

	return nil
}

// refOf 日志中的资源引用.
func refOf(rt model.ResourceType, id string) string {
	return fmt.Sprintf("%s/%s", rt, id)
}

// detached 脱离调用方取消信号并施加上限，用于不可中断的级联操作.
func detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)
}
