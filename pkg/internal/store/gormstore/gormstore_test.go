package gormstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/internal/store/gormstore"
)

func newStore(t *testing.T) *gormstore.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// 内存库每个连接独立，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	s := gormstore.New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return s
}

func strPtr(s string) *string { return &s }

func TestFolderLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	root := &model.Folder{ID: "fo_root", OwnerID: "alice", Name: "root"}
	child := &model.Folder{ID: "fo_child", OwnerID: "alice", ParentID: strPtr("fo_root"), Name: "child"}

	for _, f := range []*model.Folder{root, child} {
		if err := s.CreateFolder(ctx, f); err != nil {
			t.Fatalf("create %s: %v", f.ID, err)
		}
	}

	got, err := s.GetFolder(ctx, "fo_child")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if got.ParentID == nil || *got.ParentID != "fo_root" {
		t.Fatalf("unexpected parent %v", got.ParentID)
	}

	if err := s.MoveFolder(ctx, "fo_child", nil); err != nil {
		t.Fatalf("move: %v", err)
	}

	rootItems, err := s.ListFolders(ctx, store.ListQuery{OwnerID: "alice", ByParent: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(rootItems) != 2 {
		t.Fatalf("expected 2 root folders, got %d", len(rootItems))
	}

	now := time.Now().UTC()
	if err := s.SetFolderDeleted(ctx, "fo_child", true, &now); err != nil {
		t.Fatalf("trash: %v", err)
	}

	deleted := true

	trashed, err := s.ListFolders(ctx, store.ListQuery{OwnerID: "alice", Deleted: &deleted})
	if err != nil || len(trashed) != 1 || trashed[0].ID != "fo_child" {
		t.Fatalf("unexpected trash listing %v %v", trashed, err)
	}

	if err := s.DeleteFolder(ctx, "fo_child"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.GetFolder(ctx, "fo_child"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.RenameFolder(ctx, "fo_missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on rename of missing folder, got %v", err)
	}
}

func TestShareUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	sh := &model.Share{ID: "sh_1", ResourceType: model.ResourceFolder, ResourceID: "fo_1", GranteeUserID: "bob", Role: model.RoleViewer, CreatedBy: "alice"}
	if err := s.CreateShare(ctx, sh); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := *sh
	dup.ID = "sh_2"

	if err := s.CreateShare(ctx, &dup); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	found, err := s.FindShare(ctx, model.ResourceFolder, "fo_1", "bob")
	if err != nil || found.ID != "sh_1" {
		t.Fatalf("find: %v %v", found, err)
	}

	n, err := s.DeleteSharesByResource(ctx, model.ResourceFolder, "fo_1")
	if err != nil || n != 1 {
		t.Fatalf("delete by resource: %d %v", n, err)
	}
}

func TestLinksNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"lk_a", "lk_b"} {
		l := &model.LinkShare{
			ID: id, ResourceType: model.ResourceFile, ResourceID: "fi_1",
			Token: "tok" + id, Role: model.RoleViewer, CreatedBy: "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateLink(ctx, l); err != nil {
			t.Fatalf("create link: %v", err)
		}
	}

	links, err := s.ListLinksByResource(ctx, model.ResourceFile, "fi_1")
	if err != nil || len(links) != 2 {
		t.Fatalf("list links: %v %v", links, err)
	}

	if links[0].ID != "lk_b" {
		t.Fatalf("expected newest first, got %s", links[0].ID)
	}

	byToken, err := s.GetLinkByToken(ctx, "toklk_a")
	if err != nil || byToken.ID != "lk_a" {
		t.Fatalf("by token: %v %v", byToken, err)
	}
}

func TestRateLimitRecords(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if err := s.InsertRequest(ctx, "alice", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	n, err := s.CountSince(ctx, "alice", base)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 strictly after base, got %d %v", n, err)
	}

	oldest, err := s.OldestSince(ctx, "alice", base)
	if err != nil || !oldest.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected oldest %v %v", oldest, err)
	}

	if _, err := s.OldestSince(ctx, "bob", base); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	removed, err := s.DeleteBefore(ctx, base.Add(90*time.Second))
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 swept, got %d %v", removed, err)
	}
}
