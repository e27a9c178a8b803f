package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/apperr"
	"github.com/yeisme/drivevault/pkg/cache"
	"github.com/yeisme/drivevault/pkg/internal/model"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/storage/kv"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/internal/store/memstore"
)

var errBoom = errors.New("boom")

// fakeBlobs 内存对象存储.
type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	removeErr error
	putErr    error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) PutObject(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.putErr != nil {
		return b.putErr
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}

	b.objects[key] = buf.Bytes()

	return nil
}

func (b *fakeBlobs) RemoveObject(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.removeErr != nil {
		return b.removeErr
	}

	delete(b.objects, key)

	return nil
}

func (b *fakeBlobs) PresignGet(_ context.Context, key string, opts store.PresignOptions) (string, error) {
	mode := "attachment"
	if opts.Inline {
		mode = "inline"
	}

	return "https://blobs.test/" + key + "?mode=" + mode, nil
}

func (b *fakeBlobs) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.objects[key]

	return ok
}

// recordingPublisher 记录发布的 topic.
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for range msgs {
		p.topics = append(p.topics, topic)
	}

	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0

	for _, t := range p.topics {
		if t == topic {
			n++
		}
	}

	return n
}

type fixture struct {
	ctx   context.Context
	st    *memstore.Store
	blobs *fakeBlobs
	pub   *recordingPublisher
	kv    kv.KVStore
	svc   *service.Services
	now   time.Time
}

func newFixture(t *testing.T, mutate ...func(*service.Options)) *fixture {
	t.Helper()

	return newWrappedFixture(t, nil, mutate...)
}

// newWrappedFixture 让服务通过 wrap 返回的 store 访问 memstore.
func newWrappedFixture(t *testing.T, wrap func(*memstore.Store) store.Store, mutate ...func(*service.Options)) *fixture {
	t.Helper()

	ctx := context.Background()

	kvStore, err := kv.NewMemoryKV(ctx, nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	f := &fixture{
		ctx:   ctx,
		st:    memstore.New(),
		blobs: newFakeBlobs(),
		pub:   &recordingPublisher{},
		kv:    kvStore,
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	opts := service.DefaultOptions()
	opts.PasswordIterations = 1000
	opts.SweepProbability = 0

	for _, m := range mutate {
		m(&opts)
	}

	var st store.Store = f.st
	if wrap != nil {
		st = wrap(f.st)
	}

	logger := zerolog.Nop()
	f.svc = service.New(service.Deps{
		Store:     st,
		Blobs:     f.blobs,
		Cache:     cache.NewCache(kvStore, "test.links.v1"),
		Publisher: f.pub,
		Now:       func() time.Time { return f.now },
		Logger:    &logger,
	}, opts)

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) folder(t *testing.T, owner, name string, parent *string) *model.Folder {
	t.Helper()

	folder, err := f.svc.Folders.Create(f.ctx, owner, name, parent)
	if err != nil {
		t.Fatalf("create folder %s: %v", name, err)
	}

	return folder
}

func (f *fixture) file(t *testing.T, owner, name string, parent *string) *model.File {
	t.Helper()

	body := "content of " + name

	file, err := f.svc.Files.Upload(f.ctx, owner, service.UploadInput{
		Name:        name,
		FolderID:    parent,
		ContentType: "text/plain",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}

	return file
}

func (f *fixture) share(t *testing.T, owner string, rt model.ResourceType, id, grantee string, role model.Role) *model.Share {
	t.Helper()

	sh, err := f.svc.Shares.Create(f.ctx, owner, service.ShareInput{
		ResourceType:  rt,
		ResourceID:    id,
		GranteeUserID: grantee,
		Role:          role,
	})
	if err != nil {
		t.Fatalf("share %s with %s: %v", id, grantee, err)
	}

	return sh
}

func ptr(s string) *string { return &s }

func expectCode(t *testing.T, err error, code string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}

	if got := apperrCode(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func apperrCode(err error) string {
	return apperr.From(err).Code
}
