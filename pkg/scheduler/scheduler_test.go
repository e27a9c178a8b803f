package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/drivevault/pkg/scheduler"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatal("condition not met before deadline")
}

func TestAddCronAndRunNow(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = s.Shutdown() })

	ran := make(chan struct{}, 1)

	err = s.AddCron(context.Background(), "test.job", "0 3 * * *", func(context.Context) error {
		ran <- struct{}{}

		return nil
	})
	if err != nil {
		t.Fatalf("add cron: %v", err)
	}

	if err := s.AddCron(context.Background(), "test.job", "0 3 * * *", nil); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}

	s.Start()

	if err := s.RunNow("test.job"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	waitFor(t, func() bool {
		info, err := s.GetJobInfoByName("test.job")

		return err == nil && info.Runs == 1 && info.Status == scheduler.StatusScheduled
	})
}

func TestJobErrorRecorded(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = s.Shutdown() })

	if err := s.AddCron(context.Background(), "failing", "0 3 * * *", func(context.Context) error {
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("add cron: %v", err)
	}

	s.Start()

	if err := s.RunNow("failing"); err != nil {
		t.Fatalf("run now: %v", err)
	}

	waitFor(t, func() bool {
		info, _ := s.GetJobInfoByName("failing")

		return info.Status == scheduler.StatusError && info.Error == "boom"
	})
}

func TestUnknownJob(t *testing.T) {
	s, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	t.Cleanup(func() { _ = s.Shutdown() })

	if err := s.RunNow("missing"); !errors.Is(err, scheduler.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
