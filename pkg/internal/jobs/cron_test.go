package jobs_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yeisme/drivevault/pkg/configs"
	"github.com/yeisme/drivevault/pkg/internal/jobs"
	"github.com/yeisme/drivevault/pkg/internal/service"
	"github.com/yeisme/drivevault/pkg/internal/store"
	"github.com/yeisme/drivevault/pkg/internal/store/memstore"
	"github.com/yeisme/drivevault/pkg/scheduler"
)

type nopBlobs struct{ removed []string }

func (b *nopBlobs) PutObject(_ context.Context, _ string, r io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, r)

	return err
}

func (b *nopBlobs) RemoveObject(_ context.Context, key string) error {
	b.removed = append(b.removed, key)

	return nil
}

func (b *nopBlobs) PresignGet(_ context.Context, key string, _ store.PresignOptions) (string, error) {
	return "https://blobs.test/" + key, nil
}

type fixture struct {
	now   time.Time
	st    *memstore.Store
	blobs *nopBlobs
	svc   *service.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		st:    memstore.New(),
		blobs: &nopBlobs{},
	}

	opts := service.DefaultOptions()
	opts.SweepProbability = 0
	opts.RateMax = 2

	logger := zerolog.Nop()
	f.svc = service.New(service.Deps{
		Store:  f.st,
		Blobs:  f.blobs,
		Now:    func() time.Time { return f.now },
		Logger: &logger,
	}, opts)

	return f
}

func testConfig() *configs.AppConfig {
	cfg := &configs.AppConfig{}
	cfg.Trash = configs.TrashConfig{AutoClean: true, RetentionDays: 30, CleanCron: configs.DefaultTrashCleanCron}
	cfg.RateLimit.SweepCron = configs.DefaultRateLimitSweepCron

	return cfg
}

func jobNames(s *scheduler.Scheduler) []string {
	var names []string
	for _, info := range s.GetJobInfos() {
		names = append(names, info.Name)
	}

	return names
}

func TestRegisterCronJobs(t *testing.T) {
	f := newFixture(t)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer sched.Shutdown()

	if err := jobs.RegisterCronJobs(context.Background(), sched, f.svc, testConfig(), nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	got := strings.Join(jobNames(sched), ",")
	for _, want := range []string{jobs.JobTrashAutoClean, jobs.JobRateLimitSweep} {
		if !strings.Contains(got, want) {
			t.Errorf("job %s not registered, have %s", want, got)
		}
	}

	if err := jobs.RegisterCronJobs(context.Background(), sched, f.svc, testConfig(), nil); err == nil {
		t.Error("registering the same jobs twice should fail")
	}
}

func TestRegisterCronJobsRespectsConfig(t *testing.T) {
	f := newFixture(t)

	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	defer sched.Shutdown()

	cfg := testConfig()
	cfg.Trash.AutoClean = false
	cfg.RateLimit.SweepCron = ""

	if err := jobs.RegisterCronJobs(context.Background(), sched, f.svc, cfg, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	if n := len(sched.GetJobInfos()); n != 0 {
		t.Fatalf("expected no jobs, got %d", n)
	}

	if err := jobs.RegisterCronJobs(context.Background(), nil, f.svc, cfg, nil); err == nil {
		t.Fatal("nil scheduler should be rejected")
	}
}

func TestTrashAutoClean(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.Folders.Create(ctx, "alice", "old", nil)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	file, err := f.svc.Files.Upload(ctx, "alice", service.UploadInput{
		Name:     "a.txt",
		FolderID: &old.ID,
		Size:     5,
		Body:     strings.NewReader("hello"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := f.svc.Folders.Trash(ctx, old.ID, "alice"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	f.now = f.now.Add(40 * 24 * time.Hour)

	recent, err := f.svc.Folders.Create(ctx, "bob", "recent", nil)
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}

	if err := f.svc.Folders.Trash(ctx, recent.ID, "bob"); err != nil {
		t.Fatalf("trash: %v", err)
	}

	before := f.now.Add(-30 * 24 * time.Hour)
	if err := jobs.TrashAutoClean(ctx, f.svc.Cascade, before); err != nil {
		t.Fatalf("auto clean: %v", err)
	}

	if _, err := f.st.GetFolder(ctx, old.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expired folder should be purged, got %v", err)
	}

	if _, err := f.st.GetFile(ctx, file.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("child file should be purged with its folder, got %v", err)
	}

	if len(f.blobs.removed) != 1 || f.blobs.removed[0] != file.StorageKey {
		t.Errorf("expected blob %s removed, got %v", file.StorageKey, f.blobs.removed)
	}

	if _, err := f.st.GetFolder(ctx, recent.ID); err != nil {
		t.Errorf("recently trashed folder should survive: %v", err)
	}
}

func TestRateLimitSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res := f.svc.RateLimiter.Allow(ctx, "alice"); !res.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
	}

	if n, _ := f.st.CountSince(ctx, "alice", time.Time{}); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}

	if err := jobs.RateLimitSweep(ctx, f.svc.RateLimiter, f.now.Add(time.Minute)); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if n, _ := f.st.CountSince(ctx, "alice", time.Time{}); n != 2 {
		t.Fatalf("in-window records must survive, got %d", n)
	}

	if err := jobs.RateLimitSweep(ctx, f.svc.RateLimiter, f.now.Add(configs.DefaultRateLimitWindow+time.Minute)); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if n, _ := f.st.CountSince(ctx, "alice", time.Time{}); n != 0 {
		t.Fatalf("expired records should be swept, got %d", n)
	}
}
