// Package memstore 是 store.Store 的内存实现，用于服务层测试.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

// Store 以互斥锁保护的 map 集合，返回值均为副本.
type Store struct {
	mu sync.RWMutex

	folders    map[string]model.Folder
	files      map[string]model.File
	shares     map[string]model.Share
	links      map[string]model.LinkShare
	stars      map[string]model.Star
	activities []model.Activity
	requests   []model.RateLimitRecord
	nextReqID  uint

	// 故障注入，测试使用.
	faults map[string]error
}

var _ store.Store = (*Store)(nil)

// New 创建空存储.
func New() *Store {
	return &Store{
		folders: make(map[string]model.Folder),
		files:   make(map[string]model.File),
		shares:  make(map[string]model.Share),
		links:   make(map[string]model.LinkShare),
		stars:   make(map[string]model.Star),
		faults:  make(map[string]error),
	}
}

// FailOn 让名为 op 的方法返回 err，err 为 nil 时取消.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, op)

		return
	}

	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	return s.faults[op]
}

// Ping 内存实现总是可用.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fault("Ping")
}

func matchParent(byParent bool, want, got *string) bool {
	if !byParent {
		return true
	}

	if want == nil || got == nil {
		return want == nil && got == nil
	}

	return *want == *got
}

func matchList(q store.ListQuery, owner string, parent *string, deleted bool, trashedAt *time.Time) bool {
	if q.OwnerID != "" && owner != q.OwnerID {
		return false
	}

	if !matchParent(q.ByParent, q.ParentID, parent) {
		return false
	}

	if q.Deleted != nil && deleted != *q.Deleted {
		return false
	}

	if q.TrashedBefore != nil && (trashedAt == nil || !trashedAt.Before(*q.TrashedBefore)) {
		return false
	}

	return true
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}

	return items
}

// ---------------------------------------------------------------- folders

func (s *Store) GetFolder(_ context.Context, id string) (*model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("GetFolder"); err != nil {
		return nil, err
	}

	f, ok := s.folders[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &f, nil
}

func (s *Store) CreateFolder(_ context.Context, f *model.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("CreateFolder"); err != nil {
		return err
	}

	if _, ok := s.folders[f.ID]; ok {
		return store.ErrDuplicate
	}

	stamp(&f.CreatedAt, &f.UpdatedAt)
	s.folders[f.ID] = *f

	return nil
}

func (s *Store) updateFolder(op, id string, fn func(*model.Folder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(op); err != nil {
		return err
	}

	f, ok := s.folders[id]
	if !ok {
		return store.ErrNotFound
	}

	fn(&f)
	f.UpdatedAt = time.Now().UTC()
	s.folders[id] = f

	return nil
}

func (s *Store) RenameFolder(_ context.Context, id, name string) error {
	return s.updateFolder("RenameFolder", id, func(f *model.Folder) { f.Name = name })
}

func (s *Store) MoveFolder(_ context.Context, id string, parentID *string) error {
	return s.updateFolder("MoveFolder", id, func(f *model.Folder) { f.ParentID = copyPtr(parentID) })
}

func (s *Store) SetFolderDeleted(_ context.Context, id string, deleted bool, at *time.Time) error {
	return s.updateFolder("SetFolderDeleted", id, func(f *model.Folder) {
		f.IsDeleted = deleted
		f.TrashedAt = copyPtr(at)
	})
}

func (s *Store) DeleteFolder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteFolder"); err != nil {
		return err
	}

	if _, ok := s.folders[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.folders, id)

	return nil
}

func (s *Store) ListFolders(_ context.Context, q store.ListQuery) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("ListFolders"); err != nil {
		return nil, err
	}

	out := make([]model.Folder, 0)

	for _, f := range s.folders {
		if matchList(q, f.OwnerID, f.ParentID, f.IsDeleted, f.TrashedAt) {
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return limit(out, q.Limit), nil
}

// ---------------------------------------------------------------- files

func (s *Store) GetFile(_ context.Context, id string) (*model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("GetFile"); err != nil {
		return nil, err
	}

	f, ok := s.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	return &f, nil
}

func (s *Store) CreateFile(_ context.Context, f *model.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("CreateFile"); err != nil {
		return err
	}

	if _, ok := s.files[f.ID]; ok {
		return store.ErrDuplicate
	}

	stamp(&f.CreatedAt, &f.UpdatedAt)
	s.files[f.ID] = *f

	return nil
}

func (s *Store) updateFile(op, id string, fn func(*model.File)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(op); err != nil {
		return err
	}

	f, ok := s.files[id]
	if !ok {
		return store.ErrNotFound
	}

	fn(&f)
	f.UpdatedAt = time.Now().UTC()
	s.files[id] = f

	return nil
}

func (s *Store) RenameFile(_ context.Context, id, name string) error {
	return s.updateFile("RenameFile", id, func(f *model.File) { f.Name = name })
}

func (s *Store) MoveFile(_ context.Context, id string, folderID *string) error {
	return s.updateFile("MoveFile", id, func(f *model.File) { f.FolderID = copyPtr(folderID) })
}

func (s *Store) SetFileDeleted(_ context.Context, id string, deleted bool, at *time.Time) error {
	return s.updateFile("SetFileDeleted", id, func(f *model.File) {
		f.IsDeleted = deleted
		f.TrashedAt = copyPtr(at)
	})
}

func (s *Store) DeleteFile(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault("DeleteFile"); err != nil {
		return err
	}

	if _, ok := s.files[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.files, id)

	return nil
}

func (s *Store) ListFiles(_ context.Context, q store.ListQuery) ([]model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault("ListFiles"); err != nil {
		return nil, err
	}

	out := make([]model.File, 0)

	for _, f := range s.files {
		if matchList(q, f.OwnerID, f.FolderID, f.IsDeleted, f.TrashedAt) {
			out = append(out, f)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return limit(out, q.Limit), nil
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}

	if updated.IsZero() {
		*updated = *created
	}
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
