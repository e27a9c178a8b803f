package service

import (
	"context"
	"errors"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// StarService 用户收藏.
type StarService struct {
	store store.Store
	perms *PermissionResolver
	now   Clock
}

// Star 收藏需要 viewer，重复收藏返回已有记录.
func (s *StarService) Star(ctx context.Context, callerID string, rt model.ResourceType, id string) (*model.Star, error) {
	if err := s.perms.Require(ctx, rt, id, callerID, model.RoleViewer); err != nil {
		return nil, err
	}

	existing, err := s.store.GetStar(ctx, callerID, rt, id)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr(err, apperr.ErrNotFound)
	}

	st := &model.Star{
		ID:           model.NewID(model.PrefixStar),
		UserID:       callerID,
		ResourceType: rt,
		ResourceID:   id,
		CreatedAt:    s.now(),
	}

	if err := s.store.CreateStar(ctx, st); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, err := s.store.GetStar(ctx, callerID, rt, id)

			return existing, storeErr(err, apperr.ErrNotFound)
		}

		return nil, storeErr(err, apperr.ErrNotFound)
	}

	return st, nil
}

// Unstar 取消收藏，不存在时视为成功.
func (s *StarService) Unstar(ctx context.Context, callerID string, rt model.ResourceType, id string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}

	if err := validType(rt); err != nil {
		return err
	}

	err := s.store.DeleteStar(ctx, callerID, rt, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr(err, apperr.ErrNotFound)
	}

	return nil
}

// List 调用者的收藏.
func (s *StarService) List(ctx context.Context, callerID string) ([]model.Star, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	stars, err := s.store.ListStars(ctx, callerID)

	return stars, storeErr(err, apperr.ErrNotFound)
}
