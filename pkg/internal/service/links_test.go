package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/internal/store/memstore"
)

func TestLinkRoundTrip(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(link.Token) != 32 || link.Role != model.RoleViewer {
		t.Fatalf("unexpected link %+v", link)
	}

	for i := 0; i < 2; i++ {
		got, err := f.svc.Links.ResolveLink(f.ctx, link.Token, "")
		if err != nil {
			t.Fatalf("resolve #%d: %v", i, err)
		}

		if got.File == nil || got.File.ID != doc.ID {
			t.Fatalf("resolve #%d returned %+v", i, got)
		}

		if !strings.Contains(got.DownloadURL, "attachment") || !strings.Contains(got.ViewURL, "inline") {
			t.Errorf("unexpected urls %q %q", got.DownloadURL, got.ViewURL)
		}
	}

	if f.pub.count("dv.link.created") != 1 {
		t.Errorf("expected a link.created event")
	}
}

func TestLinkPassword(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{Password: "s3cret"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "PASSWORD_REQUIRED")

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "wrong")
	expectCode(t, err, "INVALID_PASSWORD")

	got, err := f.svc.Links.ResolveLink(f.ctx, link.Token, "s3cret")
	if err != nil {
		t.Fatalf("resolve with password: %v", err)
	}

	if got.File.ID != doc.ID {
		t.Errorf("expected %s, got %s", doc.ID, got.File.ID)
	}
}

func TestLinkExpiredBeforePassword(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)
	past := f.now.Add(-time.Minute)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{
		Password:  "s3cret",
		ExpiresAt: &past,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, pw := range []string{"", "wrong", "s3cret"} {
		_, err := f.svc.Links.ResolveLink(f.ctx, link.Token, pw)
		expectCode(t, err, "LINK_EXPIRED")
	}
}

func TestLinkExpiresOverTime(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)
	later := f.now.Add(time.Hour)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{ExpiresAt: &later})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Links.ResolveLink(f.ctx, link.Token, ""); err != nil {
		t.Fatalf("resolve before expiry: %v", err)
	}

	f.advance(time.Hour)

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "LINK_EXPIRED")
}

func TestLinkSupersedesPrevious(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	first, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// warm the cache for the first token.
	if _, err := f.svc.Links.ResolveLink(f.ctx, first.Token, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	second, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, first.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")

	current, err := f.svc.Links.GetLink(f.ctx, model.ResourceFile, doc.ID, "O")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if current.ID != second.ID {
		t.Errorf("expected newest link %s, got %s", second.ID, current.ID)
	}
}

func TestLinkOwnershipRules(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)
	f.share(t, "O", model.ResourceFile, doc.ID, "E", model.RoleEditor)

	_, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "E", service.LinkOptions{})
	expectCode(t, err, "FORBIDDEN")

	_, err = f.svc.Links.GetLink(f.ctx, model.ResourceFile, doc.ID, "O")
	expectCode(t, err, "LINK_NOT_FOUND")

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Links.GetLink(f.ctx, model.ResourceFile, doc.ID, "E")
	expectCode(t, err, "FORBIDDEN")

	err = f.svc.Links.DeleteLink(f.ctx, link.ID, "E")
	expectCode(t, err, "FORBIDDEN")

	if err := f.svc.Links.DeleteLink(f.ctx, link.ID, "O"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")

	err = f.svc.Links.DeleteLink(f.ctx, link.ID, "O")
	expectCode(t, err, "LINK_NOT_FOUND")
}

func TestLinkToFolderAndTrashedTarget(t *testing.T) {
	f := newFixture(t)
	dir := f.folder(t, "O", "dir", nil)
	f.folder(t, "O", "sub", &dir.ID)
	f.file(t, "O", "a.txt", &dir.ID)
	gone := f.file(t, "O", "gone.txt", &dir.ID)

	if err := f.svc.Files.Trash(f.ctx, gone.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFolder, dir.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if got.Folder == nil || len(got.Children.Folders) != 1 || len(got.Children.Files) != 1 {
		t.Fatalf("expected one live folder and file, got %+v", got.Children)
	}

	if err := f.svc.Folders.Trash(f.ctx, dir.ID, "O"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")

	_, err = f.svc.Links.CreateLink(f.ctx, model.ResourceFolder, dir.ID, "O", service.LinkOptions{})
	expectCode(t, err, "NOT_FOUND")
}

func TestResolveUnknownToken(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "doesnotexist"} {
		_, err := f.svc.Links.ResolveLink(f.ctx, token, "")
		expectCode(t, err, "LINK_NOT_FOUND")
	}
}

// tokenHookStore 在第一次按 token 读到链接后执行 afterRead.
type tokenHookStore struct {
	*memstore.Store

	once      sync.Once
	afterRead func()
}

func (s *tokenHookStore) GetLinkByToken(ctx context.Context, token string) (*model.LinkShare, error) {
	l, err := s.Store.GetLinkByToken(ctx, token)
	if err == nil && s.afterRead != nil {
		s.once.Do(s.afterRead)
	}

	return l, err
}

func linkCacheKeys(t *testing.T, f *fixture) []string {
	t.Helper()

	keys, err := f.kv.Keys(f.ctx, "test.links.v1.")
	if err != nil {
		t.Fatalf("kv keys: %v", err)
	}

	return keys
}

func TestLinkDeletedDuringCacheFill(t *testing.T) {
	var hooked *tokenHookStore

	f := newWrappedFixture(t, func(m *memstore.Store) store.Store {
		hooked = &tokenHookStore{Store: m}

		return hooked
	})
	doc := f.file(t, "O", "doc.txt", nil)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	hooked.afterRead = func() {
		if err := f.svc.Links.DeleteLink(f.ctx, link.ID, "O"); err != nil {
			t.Errorf("delete during resolve: %v", err)
		}
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")

	if keys := linkCacheKeys(t, f); len(keys) != 0 {
		t.Fatalf("deleted link left in cache: %v", keys)
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, link.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")
}

func TestLinkSupersededDuringCacheFill(t *testing.T) {
	var hooked *tokenHookStore

	f := newWrappedFixture(t, func(m *memstore.Store) store.Store {
		hooked = &tokenHookStore{Store: m}

		return hooked
	})
	doc := f.file(t, "O", "doc.txt", nil)

	old, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	hooked.afterRead = func() {
		if _, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{}); err != nil {
			t.Errorf("supersede during resolve: %v", err)
		}
	}

	_, err = f.svc.Links.ResolveLink(f.ctx, old.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")

	_, err = f.svc.Links.ResolveLink(f.ctx, old.Token, "")
	expectCode(t, err, "LINK_NOT_FOUND")
}

func TestLinkCacheDisabledWithZeroTTL(t *testing.T) {
	f := newFixture(t, func(o *service.Options) { o.LinkCacheTTL = 0 })
	doc := f.file(t, "O", "doc.txt", nil)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Links.ResolveLink(f.ctx, link.Token, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if keys := linkCacheKeys(t, f); len(keys) != 0 {
		t.Fatalf("zero ttl should bypass the cache, found %v", keys)
	}
}

func TestLinkCachedWithPositiveTTL(t *testing.T) {
	f := newFixture(t)
	doc := f.file(t, "O", "doc.txt", nil)

	link, err := f.svc.Links.CreateLink(f.ctx, model.ResourceFile, doc.ID, "O", service.LinkOptions{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Links.ResolveLink(f.ctx, link.Token, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if keys := linkCacheKeys(t, f); len(keys) != 1 {
		t.Fatalf("expected one cached link, found %v", keys)
	}

	if err := f.svc.Links.DeleteLink(f.ctx, link.ID, "O"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if keys := linkCacheKeys(t, f); len(keys) != 0 {
		t.Fatalf("delete should invalidate, found %v", keys)
	}
}
