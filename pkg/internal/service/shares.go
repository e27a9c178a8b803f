package service

import (
	"context"
	"errors"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/queue"
)

// ShareInput 授权参数.
type ShareInput struct {
	ResourceType  model.ResourceType
	ResourceID    string
	GranteeUserID string
	Role          model.Role
}

// ShareService 协作者授权，只有资源所有者可以管理.
type ShareService struct {
	store    store.Store
	perms    *PermissionResolver
	activity *ActivityRecorder
	events   *events
	now      Clock
}

func (s *ShareService) owned(ctx context.Context, rt model.ResourceType, id, callerID string) (model.Resource, error) {
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
		return nil, apperr.ErrForbidden.WithMessage("only the owner can manage shares")
	}

	return res, nil
}

// Create 授予 viewer 或 editor. 同一用户重复授权返回 SHARE_EXISTS.
func (s *ShareService) Create(ctx context.Context, callerID string, in ShareInput) (*model.Share, error) {
	if !in.Role.Grantable() {
		return nil, apperr.ErrInvalidInput.WithMessage("role must be viewer or editor, got %q", in.Role)
	}

	if in.GranteeUserID == "" {
		return nil, apperr.ErrInvalidInput.WithMessage("grantee_user_id is required")
	}

	res, err := s.owned(ctx, in.ResourceType, in.ResourceID, callerID)
	if err != nil {
		return nil, err
	}

	if res.Trashed() {
		return nil, apperr.ErrNotFound
	}

	if in.GranteeUserID == res.Owner() {
		return nil, apperr.ErrShareSelf
	}

	sh := &model.Share{
		ID:            model.NewID(model.PrefixShare),
		ResourceType:  in.ResourceType,
		ResourceID:    in.ResourceID,
		GranteeUserID: in.GranteeUserID,
		Role:          in.Role,
		CreatedBy:     callerID,
		CreatedAt:     s.now(),
	}

	if err := s.store.CreateShare(ctx, sh); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrShareExists
		}

		return nil, storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionShareCreate, in.ResourceType, in.ResourceID, map[string]any{
		"share_id": sh.ID,
		"grantee":  sh.GranteeUserID,
		"role":     sh.Role,
	})
	emit(ctx, s.events, queue.TopicShareCreated, queue.SharePayload{
		ShareID:  sh.ID,
		Resource: resourceRef(sh.ResourceType, sh.ResourceID),
		ActorID:  callerID,
		Grantee:  sh.GranteeUserID,
		Role:     string(sh.Role),
	})

	return sh, nil
}

// ListForResource 资源的全部授权，仅所有者可见.
func (s *ShareService) ListForResource(ctx context.Context, rt model.ResourceType, id, callerID string) ([]model.Share, error) {
	if _, err := s.owned(ctx, rt, id, callerID); err != nil {
		return nil, err
	}

	shares, err := s.store.ListShares(ctx, store.ShareQuery{ResourceType: rt, ResourceID: id})

	return shares, storeErr(err, apperr.ErrNotFound)
}

// ListIncoming 授予调用者的授权.
func (s *ShareService) ListIncoming(ctx context.Context, callerID string) ([]model.Share, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	shares, err := s.store.ListShares(ctx, store.ShareQuery{GranteeUserID: callerID})

	return shares, storeErr(err, apperr.ErrNotFound)
}

// Delete 撤销授权，需要资源所有权.
func (s *ShareService) Delete(ctx context.Context, shareID, callerID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	sh, err := s.store.GetShare(ctx, shareID)
	if err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	if _, err := s.owned(ctx, sh.ResourceType, sh.ResourceID, callerID); err != nil {
		return err
	}

	if err := s.store.DeleteShare(ctx, shareID); err != nil {
		return storeErr(err, apperr.ErrNotFound)
	}

	s.activity.record(ctx, callerID, model.ActionShareDelete, sh.ResourceType, sh.ResourceID, map[string]any{
		"share_id": sh.ID,
		"grantee":  sh.GranteeUserID,
	})
	emit(ctx, s.events, queue.TopicShareDeleted, queue.SharePayload{
		ShareID:  sh.ID,
		Resource: resourceRef(sh.ResourceType, sh.ResourceID),
		ActorID:  callerID,
		Grantee:  sh.GranteeUserID,
	})

	return nil
}
