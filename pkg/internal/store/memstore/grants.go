package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// ---------------------------------------------------------------- shares

func (s *Store) FindShare(_ context.Context, rt model.ResourceType, resourceID, grantee string) (*model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("FindShare"); err != nil {
		return nil, err
	}

	for _, sh := range s.shares {
		if sh.ResourceType == rt && sh.ResourceID == resourceID && sh.GranteeUserID == grantee {
			return &sh, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Store) GetShare(_ context.Context, id string) (*model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shares[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &sh, nil
}

func (s *Store) CreateShare(_ context.Context, sh *model.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("CreateShare"); err != nil {
		return err
	}

	for _, ex := range s.shares {
		if ex.ResourceType == sh.ResourceType && ex.ResourceID == sh.ResourceID && ex.GranteeUserID == sh.GranteeUserID {
			return store.ErrDuplicate
		}
	}

	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now().UTC()
	}

	s.shares[sh.ID] = *sh

	return nil
}

func (s *Store) DeleteShare(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.shares, id)

	return nil
}

func (s *Store) ListShares(_ context.Context, q store.ShareQuery) ([]model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Share, 0)

	for _, sh := range s.shares {
		if q.ResourceType != "" && sh.ResourceType != q.ResourceType {
			continue
		}

		if q.ResourceID != "" && sh.ResourceID != q.ResourceID {
			continue
		}

		if q.GranteeUserID != "" && sh.GranteeUserID != q.GranteeUserID {
			continue
		}

		out = append(out, sh)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Store) DeleteSharesByResource(_ context.Context, rt model.ResourceType, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteSharesByResource"); err != nil {
		return 0, err
	}

	var n int64

	for id, sh := range s.shares {
		if sh.ResourceType == rt && sh.ResourceID == resourceID {
			delete(s.shares, id)
			n++
		}
	}

	return n, nil
}

// ---------------------------------------------------------------- links

func (s *Store) CreateLink(_ context.Context, l *model.LinkShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("CreateLink"); err != nil {
		return err
	}

	for _, ex := range s.links {
		if ex.Token == l.Token {
			return store.ErrDuplicate
		}
	}

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	s.links[l.ID] = *l

	return nil
}

func (s *Store) GetLink(_ context.Context, id string) (*model.LinkShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.links[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &l, nil
}

func (s *Store) GetLinkByToken(_ context.Context, token string) (*model.LinkShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("GetLinkByToken"); err != nil {
		return nil, err
	}

	for _, l := range s.links {
		if l.Token == token {
			return &l, nil
		}
	}

	return nil, store.ErrNotFound
}

func (s *Store) ListLinksByResource(_ context.Context, rt model.ResourceType, resourceID string) ([]model.LinkShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("ListLinksByResource"); err != nil {
		return nil, err
	}

	out := make([]model.LinkShare, 0)

	for _, l := range s.links {
		if l.ResourceType == rt && l.ResourceID == resourceID {
			out = append(out, l)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}

		return out[i].ID > out[j].ID
	})

	return out, nil
}

func (s *Store) DeleteLink(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteLink"); err != nil {
		return err
	}

	if _, ok := s.links[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.links, id)

	return nil
}

// ---------------------------------------------------------------- stars

func starKey(userID string, rt model.ResourceType, resourceID string) string {
	return userID + "\x00" + string(rt) + "\x00" + resourceID
}

func (s *Store) CreateStar(_ context.Context, st *model.Star) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := starKey(st.UserID, st.ResourceType, st.ResourceID)
	if _, ok := s.stars[key]; ok {
		return store.ErrDuplicate
	}

	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}

	s.stars[key] = *st

	return nil
}

func (s *Store) GetStar(_ context.Context, userID string, rt model.ResourceType, resourceID string) (*model.Star, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stars[starKey(userID, rt, resourceID)]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &st, nil
}

func (s *Store) DeleteStar(_ context.Context, userID string, rt model.ResourceType, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := starKey(userID, rt, resourceID)
	if _, ok := s.stars[key]; !ok {
		return store.ErrNotFound
	}

	delete(s.stars, key)

	return nil
}

func (s *Store) ListStars(_ context.Context, userID string) ([]model.Star, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Star, 0)

	for _, st := range s.stars {
		if st.UserID == userID {
			out = append(out, st)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Store) DeleteStarsByResource(_ context.Context, rt model.ResourceType, resourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteStarsByResource"); err != nil {
		return 0, err
	}

	var n int64

	for key, st := range s.stars {
		if st.ResourceType == rt && st.ResourceID == resourceID {
			delete(s.stars, key)
			n++
		}
	}

	return n, nil
}

// ---------------------------------------------------------------- activity

func (s *Store) AppendActivity(_ context.Context, a *model.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("AppendActivity"); err != nil {
		return err
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	s.activities = append(s.activities, *a)

	return nil
}

func (s *Store) ListActivities(_ context.Context, q store.ActivityQuery) ([]model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Activity, 0)

	for i := len(s.activities) - 1; i >= 0; i-- {
		a := s.activities[i]
		if q.ActorID != "" && a.ActorID != q.ActorID {
			continue
		}

		if q.ResourceType != "" && a.ResourceType != q.ResourceType {
			continue
		}

		if q.ResourceID != "" && a.ResourceID != q.ResourceID {
			continue
		}

		out = append(out, a)
	}

	return limit(out, q.Limit), nil
}

// ---------------------------------------------------------------- rate limit

func (s *Store) CountSince(_ context.Context, userID string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("CountSince"); err != nil {
		return 0, err
	}

	var n int64

	for _, r := range s.requests {
		if r.UserID == userID && r.Timestamp.After(since) {
			n++
		}
	}

	return n, nil
}

func (s *Store) OldestSince(_ context.Context, userID string, since time.Time) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		oldest time.Time
		found  bool
	)

	for _, r := range s.requests {
		if r.UserID != userID || !r.Timestamp.After(since) {
			continue
		}

		if !found || r.Timestamp.Before(oldest) {
			oldest = r.Timestamp
			found = true
		}
	}

	if !found {
		return time.Time{}, store.ErrNotFound
	}

	return oldest, nil
}

func (s *Store) InsertRequest(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("InsertRequest"); err != nil {
		return err
	}

	s.nextReqID++
	s.requests = append(s.requests, model.RateLimitRecord{ID: s.nextReqID, UserID: userID, Timestamp: at})

	return nil
}

func (s *Store) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteBefore"); err != nil {
		return 0, err
	}

	kept := s.requests[:0]

	var n int64

	for _, r := range s.requests {
		if r.Timestamp.Before(cutoff) {
			n++

			continue
		}

		kept = append(kept, r)
	}

	s.requests = kept

	return n, nil
}

// RequestCount 当前保留的限流记录数，测试使用.
func (s *Store) RequestCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.requests)
}
