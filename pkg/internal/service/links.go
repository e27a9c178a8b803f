package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/metrics"
	"github.com/yeisme/drivevault/pkg/queue"
	"github.com/yeisme/drivevault/pkg/secure"
	"github.com/yeisme/drivevault/pkg/tracing"
)

// LinkOptions 创建链接时的可选项.
type LinkOptions struct {
	Password  string
	ExpiresAt *time.Time
}

// ResolvedLink 公开链接解析成功后的内容.
type ResolvedLink struct {
	ResourceType model.ResourceType `json:"resource_type"`
	Role         model.Role         `json:"role"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	File         *model.File        `json:"file,omitempty"`
	DownloadURL  string             `json:"download_url,omitempty"`
	ViewURL      string             `json:"view_url,omitempty"`
	Folder       *model.Folder      `json:"folder,omitempty"`
	Children     *Listing           `json:"children,omitempty"`
}

// cachedLink 缓存中的链接，保留口令哈希以便离线校验.
type cachedLink struct {
	ID           string             `json:"id"`
	ResourceType model.ResourceType `json:"resource_type"`
	ResourceID   string             `json:"resource_id"`
	Token        string             `json:"token"`
	Role         model.Role         `json:"role"`
	PasswordHash *string            `json:"password_hash,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	CreatedBy    string             `json:"created_by"`
	CreatedAt    time.Time          `json:"created_at"`
}

func toCachedLink(l *model.LinkShare) cachedLink {
	return cachedLink{
		ID:           l.ID,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		Token:        l.Token,
		Role:         l.Role,
		PasswordHash: l.PasswordHash,
		ExpiresAt:    l.ExpiresAt,
		CreatedBy:    l.CreatedBy,
		CreatedAt:    l.CreatedAt,
	}
}

func (c cachedLink) link() *model.LinkShare {
	return &model.LinkShare{
		ID:           c.ID,
		ResourceType: c.ResourceType,
		ResourceID:   c.ResourceID,
		Token:        c.Token,
		Role:         c.Role,
		PasswordHash: c.PasswordHash,
		ExpiresAt:    c.ExpiresAt,
		CreatedBy:    c.CreatedBy,
		CreatedAt:    c.CreatedAt,
	}
}

// linkCacheKey 以 token 的 xxhash 作为缓存键，避免明文 token 出现在 KV 中.
func linkCacheKey(token string) string {
	return strconv.FormatUint(xxhash.Sum64String(token), 16)
}

// LinkShareService 公开链接的创建、解析与删除.
type LinkShareService struct {
	store    store.Store
	blobs    store.BlobStore
	cache    *cache.Cache
	activity *ActivityRecorder
	events   *events
	now      Clock
	log      *zerolog.Logger
	hasher   secure.Hasher

	tokenLength   int
	presignExpiry time.Duration
	cacheTTL      time.Duration
}

// NewLinkShareService 创建链接服务.
func NewLinkShareService(deps Deps, opts Options, activity *ActivityRecorder, ev *events) *LinkShareService {
	tokenLength := opts.LinkTokenLength
	if tokenLength <= 0 {
		tokenLength = secure.DefaultTokenLength
	}

	return &LinkShareService{
		store:         deps.Store,
		blobs:         deps.Blobs,
		cache:         deps.Cache,
		activity:      activity,
		events:        ev,
		now:           deps.Now,
		log:           deps.Logger,
		hasher:        secure.NewHasher(opts.PasswordIterations, opts.SaltBytes),
		tokenLength:   tokenLength,
		presignExpiry: opts.PresignExpiry,
		cacheTTL:      opts.LinkCacheTTL,
	}
}

// CreateLink 为资源创建新链接，并删除该资源已有的全部链接.
// 已过期的 expires_at 也会被接受，解析时返回 LINK_EXPIRED.
func (s *LinkShareService) CreateLink(ctx context.Context, rt model.ResourceType, id, callerID string, opts LinkOptions) (*model.LinkShare, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if err := validType(rt); err != nil {
		return nil, err
	}

	res, err := loadResource(ctx, s.store, rt, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	if res.Trashed() {
		return nil, apperr.ErrNotFound
	}

	if res.Owner() != callerID {
		return nil, apperr.ErrForbidden.WithMessage("only the owner can create a link")
	}

	if _, err := s.DeleteForResource(ctx, rt, id); err != nil {
		return nil, err
	}

	token, err := secure.NewToken(s.tokenLength)
	if err != nil {
		return nil, apperr.ErrInternal.WithCause(err)
	}

	link := &model.LinkShare{
		ID:           model.NewID(model.PrefixLink),
		ResourceType: rt,
		ResourceID:   id,
		Token:        token,
		Role:         model.RoleViewer,
		ExpiresAt:    opts.ExpiresAt,
		CreatedBy:    callerID,
		CreatedAt:    s.now(),
	}

	if opts.Password != "" {
		hash, err := s.hasher.Hash(opts.Password)
		if err != nil {
			return nil, apperr.ErrInternal.WithCause(err)
		}

		link.PasswordHash = &hash
	}

	if err := s.store.CreateLink(ctx, link); err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionLinkCreate, rt, id, map[string]any{
		"link_id":      link.ID,
		"has_password": link.HasPassword(),
	})
	emit(ctx, s.events, queue.TopicLinkCreated, queue.LinkPayload{
		LinkID:      link.ID,
		Resource:    resourceRef(rt, id),
		ActorID:     callerID,
		HasPassword: link.HasPassword(),
		ExpiresAt:   link.ExpiresAt,
	})

	return link, nil
}

// ResolveLink 匿名解析链接. 过期检查先于口令检查.
func (s *LinkShareService) ResolveLink(ctx context.Context, token, password string) (*ResolvedLink, error) {
	ctx, span := tracing.StartSpan(ctx, "link.resolve")

	out, err := s.resolve(ctx, token, password)

	outcome := "success"
	if err != nil {
		outcome = apperr.From(err).Code
	}

	tracing.EndSpan(span, nil, attribute.String("link.outcome", outcome))

	metrics.LinkResolutions.WithLabelValues(outcome).Inc()

	return out, err
}

func (s *LinkShareService) resolve(ctx context.Context, token, password string) (*ResolvedLink, error) {
	if token == "" {
		return nil, apperr.ErrLinkNotFound
	}

	link, err := s.lookup(ctx, token)
	if err != nil {
		return nil, storeErr(err, apperr.ErrLinkNotFound)
	}

	if link.ExpiredAt(s.now()) {
		return nil, apperr.ErrLinkExpired
	}

	if link.HasPassword() {
		if password == "" {
			return nil, apperr.ErrPasswordRequired
		}

		ok, err := secure.Verify(password, *link.PasswordHash)
		if err != nil {
			return nil, apperr.ErrInternal.WithCause(err)
		}

		if !ok {
			return nil, apperr.ErrInvalidPassword
		}
	}

	out := &ResolvedLink{ResourceType: link.ResourceType, Role: link.Role, ExpiresAt: link.ExpiresAt}

	switch link.ResourceType {
	case model.ResourceFile:
		f, err := s.store.GetFile(ctx, link.ResourceID)
		if err != nil {
			return nil, storeErr(err, apperr.ErrLinkNotFound)
		}

		if f.IsDeleted {
			return nil, apperr.ErrLinkNotFound
		}

		out.File = f

		if out.DownloadURL, err = s.presign(ctx, f, false); err != nil {
			return nil, err
		}

		if out.ViewURL, err = s.presign(ctx, f, true); err != nil {
			return nil, err
		}
	case model.ResourceFolder:
		f, err := s.store.GetFolder(ctx, link.ResourceID)
		if err != nil {
			return nil, storeErr(err, apperr.ErrLinkNotFound)
		}

		if f.IsDeleted {
			return nil, apperr.ErrLinkNotFound
		}

		children, err := liveChildren(ctx, s.store, f.ID)
		if err != nil {
			return nil, err
		}

		out.Folder = f
		out.Children = children
	default:
		return nil, apperr.ErrLinkNotFound
	}

	return out, nil
}

func (s *LinkShareService) presign(ctx context.Context, f *model.File, inline bool) (string, error) {
	url, err := s.blobs.PresignGet(ctx, f.StorageKey, store.PresignOptions{
		FileName: f.Name,
		Inline:   inline,
		Expiry:   s.presignExpiry,
	})
	if err != nil {
		return "", apperr.ErrInternal.WithCause(err)
	}

	return url, nil
}

// lookup 先查缓存，命中后再用常量时间比较确认 token. cacheTTL<=0 时不使用缓存.
// 回填后按 id 复查一次：读库与回填之间链接若被删除，回填的条目被撤回.
func (s *LinkShareService) lookup(ctx context.Context, token string) (*model.LinkShare, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return s.store.GetLinkByToken(ctx, token)
	}

	entry, err := cache.GetOrSetConfirmed(ctx, s.cache, linkCacheKey(token),
		func(ctx context.Context) (cachedLink, error) {
			l, err := s.store.GetLinkByToken(ctx, token)
			if err != nil {
				return cachedLink{}, err
			}

			return toCachedLink(l), nil
		},
		func(ctx context.Context, e cachedLink) error {
			_, err := s.store.GetLink(ctx, e.ID)

			return err
		},
		s.cacheTTL,
	)
	if err != nil {
		return nil, err
	}

	if !secure.ConstantTimeEqual([]byte(entry.Token), []byte(token)) {
		return s.store.GetLinkByToken(ctx, token)
	}

	return entry.link(), nil
}

func (s *LinkShareService) invalidate(ctx context.Context, token string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, linkCacheKey(token)); err != nil {
		s.log.Warn().Err(err).Msg("link cache invalidation failed")
	}
}

// GetLink 资源当前（最新）的链接，仅所有者可见.
func (s *LinkShareService) GetLink(ctx context.Context, rt model.ResourceType, id, callerID string) (*model.LinkShare, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	if err := validType(rt); err != nil {
		return nil, err
	}

	res, err := loadResource(ctx, s.store, rt, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	if res.Owner() != callerID {
		return nil, apperr.ErrForbidden
	}

	links, err := s.store.ListLinksByResource(ctx, rt, id)
	if err != nil {
		return nil, storeErr(err, apperr.ErrLinkNotFound)
	}

	if len(links) == 0 {
		return nil, apperr.ErrLinkNotFound
	}

	return &links[0], nil
}

// DeleteLink 仅创建者可删除.
func (s *LinkShareService) DeleteLink(ctx context.Context, linkID, callerID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	link, err := s.store.GetLink(ctx, linkID)
	if err != nil {
		return storeErr(err, apperr.ErrLinkNotFound)
	}

	if link.CreatedBy != callerID {
		return apperr.ErrForbidden.WithMessage("only the creator can delete a link")
	}

	if err := s.store.DeleteLink(ctx, linkID); err != nil {
		return storeErr(err, apperr.ErrLinkNotFound)
	}

	s.invalidate(ctx, link.Token)
	s.activity.record(ctx, callerID, model.ActionLinkDelete, link.ResourceType, link.ResourceID, map[string]any{"link_id": link.ID})
	emit(ctx, s.events, queue.TopicLinkDeleted, queue.LinkPayload{
		LinkID:   link.ID,
		Resource: resourceRef(link.ResourceType, link.ResourceID),
		ActorID:  callerID,
	})

	return nil
}

// DeleteForResource 删除资源的全部链接并使缓存失效.
func (s *LinkShareService) DeleteForResource(ctx context.Context, rt model.ResourceType, id string) (int, error) {
	links, err := s.store.ListLinksByResource(ctx, rt, id)
	if err != nil {
		return 0, storeErr(err, apperr.ErrNotFound)
	}

	n := 0

	for _, l := range links {
		if err := s.store.DeleteLink(ctx, l.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return n, storeErr(err, apperr.ErrNotFound)
		}

		s.invalidate(ctx, l.Token)

		n++
	}

	return n, nil
}
