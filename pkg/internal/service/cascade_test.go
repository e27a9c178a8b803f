package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/store"
)

func TestRestoreIsShallowAndNotIdempotent(t *testing.T) {
	f := newFixture(t)
	a := f.folder(t, "O", "A", nil)
	b := f.folder(t, "O", "B", &a.ID)

	if err := f.svc.Folders.Trash(f.ctx, b.ID, "O"); err != nil {
		t.Fatalf("trash b: %v", err)
	}

	if err := f.svc.Folders.Trash(f.ctx, a.ID, "O"); err != nil {
		t.Fatalf("trash a: %v", err)
	}

	if err := f.svc.Trash.Restore(f.ctx, model.ResourceFolder, a.ID, "O"); err != nil {
		t.Fatalf("restore: %v", err)
	}

	child, _ := f.st.GetFolder(f.ctx, b.ID)
	if !child.IsDeleted {
		t.Error("restore must not touch trashed children")
	}

	restored, _ := f.st.GetFolder(f.ctx, a.ID)
	if restored.IsDeleted || restored.TrashedAt != nil {
		t.Errorf("restored folder should be live, got %+v", restored)
	}

	err := f.svc.Trash.Restore(f.ctx, model.ResourceFolder, a.ID, "O")
	expectCode(t, err, "NOT_IN_TRASH")
}

func TestRestoreAndPurgeOwnerOnly(t *testing.T) {
	f := newFixture(t)
	a := f.folder(t, "O", "A", nil)
	f.share(t, "O", model.ResourceFolder, a.ID, "E", model.RoleEditor)

	if err := f.svc.Folders.Trash(f.ctx, a.ID, "E"); err != nil {
		t.Fatalf("editor may trash: %v", err)
	}

	err := f.svc.Trash.Restore(f.ctx, model.ResourceFolder, a.ID, "E")
	expectCode(t, err, "FORBIDDEN")

	_, err = f.svc.Trash.Purge(f.ctx, model.ResourceFolder, a.ID, "E")
	expectCode(t, err, "FORBIDDEN")
}

func TestPurgeRequiresTrash(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	_, err := f.svc.Trash.Purge(f.ctx, model.ResourceFile, doc.ID, "O")
	expectCode(t, err, "NOT_IN_TRASH")

	if err := f.svc.Files.Trash(f.ctx, doc.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	err = f.svc.Files.Trash(f.ctx, doc.ID, "O")
	expectCode(t, err, "ALREADY_IN_TRASH")

	report, err := f.svc.Trash.Purge(f.ctx, model.ResourceFile, doc.ID, "O")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if len(report.FileIDs) != 1 || report.FileIDs[0] != doc.ID {
		t.Errorf("unexpected report %+v", report)
	}

	if f.blobs.has(doc.StorageKey) {
		t.Error("blob should be removed")
	}

	_, err = f.svc.Trash.Purge(f.ctx, model.ResourceFile, doc.ID, "O")
	expectCode(t, err, "NOT_FOUND")
}

func TestPurgeFolderCompleteness(t *testing.T) {
	f := newFixture(t)
	root := f.folder(t, "O", "root", nil)
	mid := f.folder(t, "O", "mid", &root.ID)
	leaf := f.folder(t, "O", "leaf", &mid.ID)
	files := []*model.File{
		f.file(t, "O", "a.txt", &root.ID),
		f.file(t, "O", "b.txt", &mid.ID),
		f.file(t, "O", "c.txt", &leaf.ID),
	}

	f.share(t, "O", model.ResourceFolder, mid.ID, "V", model.RoleViewer)
	f.share(t, "O", model.ResourceFile, files[2].ID, "V", model.RoleViewer)

	if _, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, files[1].ID, "O", service.LinkOptions{}); err != nil {
		t.Fatalf("link: %v", err)
	}

	if _, err := f.svc.Stars.Star(f.ctx, "V", model.ResourceFolder, leaf.ID); err != nil {
		t.Fatalf("star: %v", err)
	}

	if err := f.svc.Folders.Trash(f.ctx, root.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	report, err := f.svc.Trash.Purge(f.ctx, model.ResourceFolder, root.ID, "O")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if len(report.FileIDs) != 3 || len(report.FolderIDs) != 3 {
		t.Fatalf("expected 3 files and 3 folders, got %+v", report)
	}

	// children are removed before their parents.
	if report.FolderIDs[len(report.FolderIDs)-1] != root.ID {
		t.Errorf("root must be removed last, got %v", report.FolderIDs)
	}

	ids := map[model.ResourceType][]string{
		model.ResourceFolder: {root.ID, mid.ID, leaf.ID},
		model.ResourceFile:   {files[0].ID, files[1].ID, files[2].ID},
	}

	for rt, list := range ids {
		for _, id := range list {
			if rt == model.ResourceFolder {
				if _, err := f.st.GetFolder(f.ctx, id); !errors.Is(err, store.ErrNotFound) {
					t.Errorf("folder %s still present", id)
				}
			} else if _, err := f.st.GetFile(f.ctx, id); !errors.Is(err, store.ErrNotFound) {
				t.Errorf("file %s still present", id)
			}

			shares, _ := f.st.ListShares(f.ctx, store.ShareQuery{ResourceType: rt, ResourceID: id})
			links, _ := f.st.ListLinksByResource(f.ctx, rt, id)

			if len(shares) != 0 || len(links) != 0 {
				t.Errorf("%s/%s keeps %d shares and %d links", rt, id, len(shares), len(links))
			}
		}
	}

	stars, _ := f.st.ListStars(f.ctx, "V")
	if len(stars) != 0 {
		t.Errorf("stars should be removed, got %d", len(stars))
	}

	for _, file := range files {
		if f.blobs.has(file.StorageKey) {
			t.Errorf("blob %s still present", file.StorageKey)
		}
	}

	if f.pub.count("dv.resource.purged") != 1 {
		t.Errorf("expected one purged event, got %d", f.pub.count("dv.resource.purged"))
	}
}

func TestPurgeSkipsForeignChildren(t *testing.T) {
	f := newFixture(t)
	root := f.folder(t, "O", "root", nil)
	f.share(t, "O", model.ResourceFolder, root.ID, "E", model.RoleEditor)

	foreignFolder := f.folder(t, "E", "mine", &root.ID)
	foreignFile := f.file(t, "E", "mine.txt", &root.ID)

	if err := f.svc.Folders.Trash(f.ctx, root.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	report, err := f.svc.Trash.Purge(f.ctx, model.ResourceFolder, root.ID, "O")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if len(report.Skipped) != 2 {
		t.Errorf("expected 2 skipped, got %v", report.Skipped)
	}

	if _, err := f.st.GetFolder(f.ctx, foreignFolder.ID); err != nil {
		t.Errorf("foreign folder must survive: %v", err)
	}

	if _, err := f.st.GetFile(f.ctx, foreignFile.ID); err != nil {
		t.Errorf("foreign file must survive: %v", err)
	}
}

func TestPurgeContinuesAfterBlobFailure(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	if err := f.svc.Files.Trash(f.ctx, doc.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	f.blobs.removeErr = errBoom

	report, err := f.svc.Trash.Purge(f.ctx, model.ResourceFile, doc.ID, "O")
	if err != nil {
		t.Fatalf("purge: %v", err)
	}

	if len(report.BlobFailures) != 1 || len(report.FileIDs) != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := f.st.GetFile(f.ctx, doc.ID); !errors.Is(err, store.ErrNotFound) {
		t.Error("metadata must be removed even when the blob delete fails")
	}
}

func TestPurgeSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	if err := f.svc.Files.Trash(f.ctx, doc.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	if _, err := f.svc.Trash.Purge(ctx, model.ResourceFile, doc.ID, "O"); err != nil {
		t.Fatalf("purge on a cancelled context: %v", err)
	}
}

func TestPurgeCorruptSubtree(t *testing.T) {
	f := newFixture(t)
	root := f.folder(t, "O", "root", nil)
	now := f.now

	// a child that points back at itself.
	loop := &model.Folder{ID: "fo_loop", OwnerID: "O", ParentID: &root.ID, Name: "loop", CreatedAt: now}
	if err := f.st.CreateFolder(f.ctx, loop); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.st.MoveFolder(f.ctx, loop.ID, &loop.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.st.MoveFolder(f.ctx, root.ID, &loop.ID); err != nil {
		t.Fatalf("seed: %v", err)
	}

	at := now
	if err := f.st.SetFolderDeleted(f.ctx, root.ID, true, &at); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := f.svc.Trash.Purge(f.ctx, model.ResourceFolder, root.ID, "O")
	if err != nil {
		t.Fatalf("root's own subtree is empty, purge should succeed: %v", err)
	}

	if err := f.st.SetFolderDeleted(f.ctx, loop.ID, true, &at); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = f.svc.Trash.Purge(f.ctx, model.ResourceFolder, loop.ID, "O")
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("self-parented folder should be an integrity error, got %v", err)
	}
}

func TestEmptyTrashAndPurgeExpired(t *testing.T) {
	f := newFixture(t)
	outer := f.folder(t, "O", "outer", nil)
	inner := f.folder(t, "O", "inner", &outer.ID)
	loose := f.file(t, "O", "loose.txt", nil)
	theirs := f.file(t, "X", "theirs.txt", nil)

	for _, step := range []func() error{
		func() error { return f.svc.Folders.Trash(f.ctx, inner.ID, "O") },
		func() error { return f.svc.Folders.Trash(f.ctx, outer.ID, "O") },
		func() error { return f.svc.Files.Trash(f.ctx, loose.ID, "O") },
		func() error { return f.svc.Files.Trash(f.ctx, theirs.ID, "X") },
	} {
		if err := step(); err != nil {
			t.Fatalf("trash: %v", err)
		}
	}

	report, err := f.svc.Trash.Empty(f.ctx, "O")
	if err != nil {
		t.Fatalf("empty: %v", err)
	}

	if len(report.FolderIDs) != 2 || len(report.FileIDs) != 1 {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := f.st.GetFile(f.ctx, theirs.ID); err != nil {
		t.Fatalf("other users' trash must survive: %v", err)
	}

	f.advance(31 * 24 * time.Hour)

	report, err = f.svc.Cascade.PurgeExpired(f.ctx, f.now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("purge expired: %v", err)
	}

	if len(report.FileIDs) != 1 || report.FileIDs[0] != theirs.ID {
		t.Errorf("expected the expired file, got %+v", report)
	}
}
