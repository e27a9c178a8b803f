package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
)

func TestResolveOwnerAndShares(t *testing.T) {
	f := newFixture(t)
	a := f.folder(t, "owner", "A", nil)
	b := f.folder(t, "owner", "B", &a.ID)
	doc := f.file(t, "owner", "doc.txt", &b.ID)

	f.share(t, "owner", model.ResourceFolder, a.ID, "editor", model.RoleEditor)
	f.share(t, "owner", model.ResourceFolder, b.ID, "viewer", model.RoleViewer)

	cases := []struct {
		name     string
		caller   string
		required model.Role
		allowed  bool
		role     model.Role
		reason   string
	}{
		{"owner reads", "owner", model.RoleViewer, true, model.RoleOwner, service.ReasonOwner},
		{"owner edits", "owner", model.RoleEditor, true, model.RoleOwner, service.ReasonOwner},
		{"editor inherited from ancestor", "editor", model.RoleEditor, true, model.RoleEditor, service.ReasonShare},
		{"viewer reads", "viewer", model.RoleViewer, true, model.RoleViewer, service.ReasonShare},
		{"viewer cannot edit", "viewer", model.RoleEditor, false, "", service.ReasonNoGrant},
		{"stranger", "stranger", model.RoleViewer, false, "", service.ReasonNoGrant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFile, doc.ID, tc.caller, tc.required)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}

			if d.Allowed != tc.allowed || d.Role != tc.role || d.Reason != tc.reason {
				t.Errorf("expected (%v,%q,%q), got %+v", tc.allowed, tc.role, tc.reason, d)
			}
		})
	}
}

func TestResolveViewerShareDoesNotStopClimbForEditor(t *testing.T) {
	f := newFixture(t)
	a := f.folder(t, "owner", "A", nil)
	b := f.folder(t, "owner", "B", &a.ID)

	// viewer on B, editor on A: the walk must continue past B.
	f.share(t, "owner", model.ResourceFolder, b.ID, "u", model.RoleViewer)
	f.share(t, "owner", model.ResourceFolder, a.ID, "u", model.RoleEditor)

	d, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, b.ID, "u", model.RoleEditor)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !d.Allowed || d.Role != model.RoleEditor {
		t.Errorf("expected editor via A, got %+v", d)
	}
}

func TestResolveFirstOwnershipMatchWins(t *testing.T) {
	f := newFixture(t)
	a := f.folder(t, "alice", "A", nil)
	f.share(t, "alice", model.ResourceFolder, a.ID, "bob", model.RoleEditor)

	// bob owns a folder placed inside alice's tree.
	b := f.folder(t, "bob", "B", &a.ID)

	d, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, b.ID, "bob", model.RoleEditor)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if d.Role != model.RoleOwner {
		t.Errorf("bob owns B directly, got %+v", d)
	}

	d, err = f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, b.ID, "alice", model.RoleEditor)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !d.Allowed || d.Role != model.RoleOwner {
		t.Errorf("alice is the transitive owner of B, got %+v", d)
	}
}

func TestResolveMissingAndDangling(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFile, "fi_missing", "u", model.RoleViewer)
	if err != nil || d.Allowed || d.Reason != service.ReasonNotFound {
		t.Fatalf("missing target should deny with not_found, got %+v %v", d, err)
	}

	err = f.svc.Permissions.Require(f.ctx, model.ResourceFile, "fi_missing", "u", model.RoleViewer)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("require on missing target should be not found, got %v", err)
	}

	orphan := &model.Folder{ID: "fo_orphan", OwnerID: "owner", ParentID: ptr("fo_gone"), Name: "orphan"}
	if err := f.st.CreateFolder(f.ctx, orphan); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d, err = f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, orphan.ID, "u", model.RoleViewer)
	if err != nil || d.Allowed || d.Reason != service.ReasonDangling {
		t.Fatalf("dangling parent should deny, got %+v %v", d, err)
	}

	err = f.svc.Permissions.Require(f.ctx, model.ResourceFolder, orphan.ID, "u", model.RoleViewer)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("require with dangling parent should be forbidden, got %v", err)
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	f := newFixture(t)
	now := time.Now()

	for _, fo := range []*model.Folder{
		{ID: "fo_a", OwnerID: "owner", ParentID: ptr("fo_b"), Name: "a", CreatedAt: now},
		{ID: "fo_b", OwnerID: "owner", ParentID: ptr("fo_a"), Name: "b", CreatedAt: now},
	} {
		if err := f.st.CreateFolder(f.ctx, fo); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	_, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, "fo_a", "stranger", model.RoleViewer)
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}

	if apperr.StatusOf(err) != 500 {
		t.Errorf("integrity errors surface as 500, got %d", apperr.StatusOf(err))
	}
}

func TestResolveDepthCeiling(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.MaxDepth = 3 })

	var parent *string

	for i := 0; i < 6; i++ {
		fo := f.folder(t, "owner", "level", parent)
		parent = &fo.ID
	}

	_, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFolder, *parent, "stranger", model.RoleViewer)
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error past the ceiling, got %v", err)
	}
}

func TestResolveRejectsOwnerRequirement(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFile, "fi_x", "u", model.RoleOwner)
	if !apperr.IsKind(err, apperr.KindInvalidInput) {
		t.Errorf("owner is not a requestable role, got %v", err)
	}
}

func TestResolveStoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "owner", "doc.txt", nil)
	f.st.FailOn("FindShare", errBoom)

	_, err := f.svc.Permissions.Resolve(f.ctx, model.ResourceFile, doc.ID, "owner", model.RoleViewer)
	if !apperr.IsKind(err, apperr.KindInternal) || !errors.Is(err, errBoom) {
		t.Errorf("expected internal error wrapping cause, got %v", err)
	}
}
