package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type memLock struct {
	held     bool
	releases int
}

func (l *memLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *memLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func newTestService(t *testing.T, lock Lock, registry *Registry, timeout time.Duration) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:     quietLogger(),
		Registry:   registry,
		Lock:       lock,
		JobTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &memLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: quietLogger()}); err == nil {
		t.Fatal("expected error without lock")
	}
}

func TestRunCycleKeepsGoingPastFailures(t *testing.T) {
	sweep := &countingJob{name: "sweep"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}
	lock := &memLock{}
	svc := newTestService(t, lock, NewRegistry(broken, sweep), 0)

	err := svc.runCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broken: boom") {
		t.Fatalf("expected aggregated failure, got %v", err)
	}
	if broken.runs != 1 || sweep.runs != 1 {
		t.Fatalf("expected each job once, got broken=%d sweep=%d", broken.runs, sweep.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once, held=%v releases=%d", lock.held, lock.releases)
	}
}

func TestRunCycleWithoutLockDoesNothing(t *testing.T) {
	job := &countingJob{name: "audit"}
	svc := newTestService(t, &memLock{held: true}, NewRegistry(job), 0)

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times while another replica held the lock", job.runs)
	}
}

type waitForCancel struct{}

func (waitForCancel) Name() string { return "slow" }

func (waitForCancel) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunCycleCancelsSlowJobs(t *testing.T) {
	svc := newTestService(t, &memLock{}, NewRegistry(waitForCancel{}), 10*time.Millisecond)

	err := svc.runCycle(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRegistryDueRespectsCadence(t *testing.T) {
	everyCycle := &countingJob{name: "dispatch"}
	hourly := &countingJob{name: "audit"}
	registry := NewRegistry(everyCycle)
	registry.RegisterEvery(hourly, time.Hour)
	registry.Register(nil)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want []string
	}{
		{at: start, want: []string{"dispatch", "audit"}},
		{at: start.Add(30 * time.Minute), want: []string{"dispatch"}},
		{at: start.Add(time.Hour), want: []string{"dispatch", "audit"}},
	}
	for _, tc := range cases {
		var got []string
		for _, job := range registry.Due(tc.at) {
			got = append(got, job.Name())
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("at %s: expected %v got %v", tc.at.Format(time.Kitchen), tc.want, got)
		}
	}
	if n := len(registry.Jobs()); n != 2 {
		t.Fatalf("expected nil job to be ignored, have %d jobs", n)
	}
}
