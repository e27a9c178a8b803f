package gormstore

import (
	"context"
	"time"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// ---------------------------------------------------------------- shares

func (s *Store) FindShare(ctx context.Context, rt model.ResourceType, resourceID, grantee string) (*model.Share, error) {
	var sh model.Share

	err := s.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ? AND grantee_user_id = ?", rt, resourceID, grantee).
		Take(&sh).Error
	if err != nil {
		return nil, translate("find share", err)
	}

	return &sh, nil
}

func (s *Store) GetShare(ctx context.Context, id string) (*model.Share, error) {
	var sh model.Share
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&sh).Error; err != nil {
		return nil, translate("get share", err)
	}

	return &sh, nil
}

func (s *Store) CreateShare(ctx context.Context, sh *model.Share) error {
	return translate("create share", s.db.WithContext(ctx).Create(sh).Error)
}

func (s *Store) DeleteShare(ctx context.Context, id string) error {
	return affected("delete share", s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Share{}))
}

func (s *Store) ListShares(ctx context.Context, q store.ShareQuery) ([]model.Share, error) {
	tx := s.db.WithContext(ctx)
	if q.ResourceType != "" {
		tx = tx.Where("resource_type = ?", q.ResourceType)
	}

	if q.ResourceID != "" {
		tx = tx.Where("resource_id = ?", q.ResourceID)
	}

	if q.GranteeUserID != "" {
		tx = tx.Where("grantee_user_id = ?", q.GranteeUserID)
	}

	out := make([]model.Share, 0)
	if err := tx.Order("id").Find(&out).Error; err != nil {
		return nil, translate("list shares", err)
	}

	return out, nil
}

func (s *Store) DeleteSharesByResource(ctx context.Context, rt model.ResourceType, resourceID string) (int64, error) {
	tx := s.db.WithContext(ctx).Where("resource_type = ? AND resource_id = ?", rt, resourceID).Delete(&model.Share{})

	return tx.RowsAffected, translate("delete shares", tx.Error)
}

// ---------------------------------------------------------------- links

func (s *Store) CreateLink(ctx context.Context, l *model.LinkShare) error {
	return translate("create link", s.db.WithContext(ctx).Create(l).Error)
}

func (s *Store) GetLink(ctx context.Context, id string) (*model.LinkShare, error) {
	var l model.LinkShare
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&l).Error; err != nil {
		return nil, translate("get link", err)
	}

	return &l, nil
}

func (s *Store) GetLinkByToken(ctx context.Context, token string) (*model.LinkShare, error) {
	var l model.LinkShare
	if err := s.db.WithContext(ctx).Where("token = ?", token).Take(&l).Error; err != nil {
		return nil, translate("get link by token", err)
	}

	return &l, nil
}

func (s *Store) ListLinksByResource(ctx context.Context, rt model.ResourceType, resourceID string) ([]model.LinkShare, error) {
	out := make([]model.LinkShare, 0)

	err := s.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id = ?", rt, resourceID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate("list links", err)
	}

	return out, nil
}

func (s *Store) DeleteLink(ctx context.Context, id string) error {
	return affected("delete link", s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.LinkShare{}))
}

// ---------------------------------------------------------------- stars

func (s *Store) CreateStar(ctx context.Context, st *model.Star) error {
	return translate("create star", s.db.WithContext(ctx).Create(st).Error)
}

func (s *Store) GetStar(ctx context.Context, userID string, rt model.ResourceType, resourceID string) (*model.Star, error) {
	var st model.Star

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", userID, rt, resourceID).
		Take(&st).Error
	if err != nil {
		return nil, translate("get star", err)
	}

	return &st, nil
}

func (s *Store) DeleteStar(ctx context.Context, userID string, rt model.ResourceType, resourceID string) error {
	tx := s.db.WithContext(ctx).
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", userID, rt, resourceID).
		Delete(&model.Star{})

	return affected("delete star", tx)
}

func (s *Store) ListStars(ctx context.Context, userID string) ([]model.Star, error) {
	out := make([]model.Star, 0)
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		return nil, translate("list stars", err)
	}

	return out, nil
}

func (s *Store) DeleteStarsByResource(ctx context.Context, rt model.ResourceType, resourceID string) (int64, error) {
	tx := s.db.WithContext(ctx).Where("resource_type = ? AND resource_id = ?", rt, resourceID).Delete(&model.Star{})

	return tx.RowsAffected, translate("delete stars", tx.Error)
}

// ---------------------------------------------------------------- activity

func (s *Store) AppendActivity(ctx context.Context, a *model.Activity) error {
	return translate("append activity", s.db.WithContext(ctx).Create(a).Error)
}

func (s *Store) ListActivities(ctx context.Context, q store.ActivityQuery) ([]model.Activity, error) {
	tx := s.db.WithContext(ctx)
	if q.ActorID != "" {
		tx = tx.Where("actor_id = ?", q.ActorID)
	}

	if q.ResourceType != "" {
		tx = tx.Where("resource_type = ?", q.ResourceType)
	}

	if q.ResourceID != "" {
		tx = tx.Where("resource_id = ?", q.ResourceID)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	out := make([]model.Activity, 0)
	if err := tx.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, translate("list activities", err)
	}

	return out, nil
}

// ---------------------------------------------------------------- rate limit

func (s *Store) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64

	err := s.db.WithContext(ctx).Model(&model.RateLimitRecord{}).
		Where("user_id = ? AND requested_at > ?", userID, since.UTC()).
		Count(&n).Error

	return n, translate("count requests", err)
}

func (s *Store) OldestSince(ctx context.Context, userID string, since time.Time) (time.Time, error) {
	var rec model.RateLimitRecord

	err := s.db.WithContext(ctx).
		Where("user_id = ? AND requested_at > ?", userID, since.UTC()).
		Order("requested_at").
		Take(&rec).Error
	if err != nil {
		return time.Time{}, translate("oldest request", err)
	}

	return rec.Timestamp, nil
}

func (s *Store) InsertRequest(ctx context.Context, userID string, at time.Time) error {
	rec := model.RateLimitRecord{UserID: userID, Timestamp: at.UTC()}

	return translate("insert request", s.db.WithContext(ctx).Create(&rec).Error)
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := s.db.WithContext(ctx).Where("requested_at < ?", cutoff.UTC()).Delete(&model.RateLimitRecord{})

	return tx.RowsAffected, translate("sweep requests", tx.Error)
}
