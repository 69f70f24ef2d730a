package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

type fixture struct {
	conn       *gorm.DB
	repo       Repository
	scheduler  Scheduler
	dispatcher *Dispatcher
	clock      *clock
}

func newFixture(t *testing.T, name string) fixture {
	t.Helper()
	conn := dbtest.Open(t, name)
	logg := logger.New(logger.Options{ServiceName: "test"})
	repo := NewRepository(conn)
	sched, err := NewScheduler(repo, logg)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	clk := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	d, err := NewDispatcher(DispatcherParams{Repo: repo, Logger: logg, BatchSize: 10, Now: clk.Now})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	return fixture{conn: conn, repo: repo, scheduler: sched, dispatcher: d, clock: clk}
}

func (f fixture) status(t *testing.T, key string) models.DeferredTask {
	t.Helper()
	task, err := f.repo.FindByKey(context.Background(), key)
	if err != nil || task == nil {
		t.Fatalf("find task %s: %v", key, err)
	}
	return *task
}

type payload struct {
	TransactionID string `json:"transactionId"`
}

func TestScheduleRejectsDuplicateKey(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()

	if err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", f.clock.t, payload{"TX1"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", f.clock.t, payload{"TX1"})
	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict code, got %v", err)
	}
}

func TestScheduleRearmsDroppedKey(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()

	attempts := 0
	if err := f.dispatcher.Register("shop-verify", func(_ context.Context, task models.DeferredTask) error {
		attempts++
		var p payload
		if err := DecodePayload(task, &p); err != nil {
			return err
		}
		if p.TransactionID != "TX1-again" {
			return fmt.Errorf("%w: no payment yet", ErrDrop)
		}
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", f.clock.t, payload{"TX1"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := f.dispatcher.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := f.status(t, "shop-verify:TX1"); got.Status != enums.TaskStatusDropped {
		t.Fatalf("expected dropped, got %s", got.Status)
	}

	runAt := f.clock.t.Add(10 * time.Second)
	if err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", runAt, payload{"TX1-again"}); err != nil {
		t.Fatalf("schedule after drop: %v", err)
	}
	task := f.status(t, "shop-verify:TX1")
	if task.Status != enums.TaskStatusPending || task.Attempts != 0 || task.LastError != nil || task.CompletedAt != nil {
		t.Fatalf("expected a fresh pending task, got %+v", task)
	}
	if !task.RunAt.Equal(runAt) {
		t.Fatalf("expected run_at %s, got %s", runAt, task.RunAt)
	}

	// still guarded while the rearmed task waits
	if err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", runAt, payload{"TX1"}); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask for a pending key, got %v", err)
	}

	f.clock.t = runAt
	if _, err := f.dispatcher.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := f.status(t, "shop-verify:TX1"); got.Status != enums.TaskStatusDone || attempts != 2 {
		t.Fatalf("expected done after second attempt, status=%s attempts=%d", got.Status, attempts)
	}

	// a done key is never reused
	if err := f.scheduler.Schedule(ctx, "shop-verify:TX1", "shop-verify", runAt, payload{"TX1"}); !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask for a done key, got %v", err)
	}
}

func TestScheduleValidatesKey(t *testing.T) {
	f := newFixture(t, t.Name())
	err := f.scheduler.Schedule(context.Background(), " ", "shop-verify", f.clock.t, nil)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunOnceExecutesOnlyDueTasks(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()

	var seen []string
	if err := f.dispatcher.Register("shop-verify", func(_ context.Context, task models.DeferredTask) error {
		var p payload
		if err := DecodePayload(task, &p); err != nil {
			return err
		}
		seen = append(seen, p.TransactionID)
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := f.scheduler.Schedule(ctx, "k-due", "shop-verify", f.clock.t.Add(-time.Second), payload{"DUE"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := f.scheduler.Schedule(ctx, "k-later", "shop-verify", f.clock.t.Add(time.Minute), payload{"LATER"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	ran, err := f.dispatcher.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if ran != 1 || len(seen) != 1 || seen[0] != "DUE" {
		t.Fatalf("expected only DUE to run, ran=%d seen=%v", ran, seen)
	}
	done := f.status(t, "k-due")
	if done.Status != enums.TaskStatusDone || done.Attempts != 1 || done.CompletedAt == nil {
		t.Fatalf("unexpected due task state: %+v", done)
	}
	if later := f.status(t, "k-later"); later.Status != enums.TaskStatusPending {
		t.Fatalf("expected later task pending, got %s", later.Status)
	}

	// a second pass must not re-run the finished task
	if ran, err = f.dispatcher.RunOnce(ctx); err != nil || ran != 0 {
		t.Fatalf("expected no work, ran=%d err=%v", ran, err)
	}

	f.clock.t = f.clock.t.Add(2 * time.Minute)
	if ran, err = f.dispatcher.RunOnce(ctx); err != nil || ran != 1 {
		t.Fatalf("expected later task to run, ran=%d err=%v", ran, err)
	}
	if len(seen) != 2 || seen[1] != "LATER" {
		t.Fatalf("unexpected executions: %v", seen)
	}
}

func TestRunOnceRecordsHandlerOutcomes(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()

	handlers := map[string]Handler{
		"drop":  func(context.Context, models.DeferredTask) error { return fmt.Errorf("%w: order exists", ErrDrop) },
		"fail":  func(context.Context, models.DeferredTask) error { return errors.New("boom") },
		"panic": func(context.Context, models.DeferredTask) error { panic("unexpected") },
	}
	for kind, h := range handlers {
		if err := f.dispatcher.Register(kind, h); err != nil {
			t.Fatalf("register %s: %v", kind, err)
		}
		if err := f.scheduler.Schedule(ctx, "key-"+kind, kind, f.clock.t, nil); err != nil {
			t.Fatalf("schedule %s: %v", kind, err)
		}
	}
	if err := f.scheduler.Schedule(ctx, "key-orphan", "orphan", f.clock.t, nil); err != nil {
		t.Fatalf("schedule orphan: %v", err)
	}

	if _, err := f.dispatcher.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}

	cases := map[string]enums.TaskStatus{
		"key-drop":   enums.TaskStatusDropped,
		"key-fail":   enums.TaskStatusFailed,
		"key-panic":  enums.TaskStatusFailed,
		"key-orphan": enums.TaskStatusFailed,
	}
	for key, want := range cases {
		task := f.status(t, key)
		if task.Status != want {
			t.Fatalf("%s: expected %s, got %s", key, want, task.Status)
		}
		if task.LastError == nil || *task.LastError == "" {
			t.Fatalf("%s: expected last error recorded", key)
		}
	}
}

func TestRegisterRejectsDuplicateKind(t *testing.T) {
	f := newFixture(t, t.Name())
	noop := func(context.Context, models.DeferredTask) error { return nil }
	if err := f.dispatcher.Register("shop-verify", noop); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := f.dispatcher.Register("shop-verify", noop); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestClaimIsWonOnce(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()
	if err := f.scheduler.Schedule(ctx, "claim-me", "shop-verify", f.clock.t, nil); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	task := f.status(t, "claim-me")

	first, err := f.repo.Claim(ctx, task.ID, f.clock.t)
	if err != nil || !first {
		t.Fatalf("expected first claim to win, won=%v err=%v", first, err)
	}
	second, err := f.repo.Claim(ctx, task.ID, f.clock.t)
	if err != nil || second {
		t.Fatalf("expected second claim to lose, won=%v err=%v", second, err)
	}
}

func TestFailStuckReleasesExpiredClaims(t *testing.T) {
	f := newFixture(t, t.Name())
	ctx := context.Background()
	for _, key := range []string{"old", "fresh"} {
		if err := f.scheduler.Schedule(ctx, key, "shop-verify", f.clock.t, nil); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	old := f.status(t, "old")
	fresh := f.status(t, "fresh")
	if _, err := f.repo.Claim(ctx, old.ID, f.clock.t.Add(-10*time.Minute)); err != nil {
		t.Fatalf("claim old: %v", err)
	}
	if _, err := f.repo.Claim(ctx, fresh.ID, f.clock.t); err != nil {
		t.Fatalf("claim fresh: %v", err)
	}

	n, err := f.repo.FailStuck(ctx, f.clock.t.Add(-5*time.Minute), f.clock.t)
	if err != nil {
		t.Fatalf("fail stuck: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stuck task, got %d", n)
	}
	if got := f.status(t, "old").Status; got != enums.TaskStatusFailed {
		t.Fatalf("expected old task failed, got %s", got)
	}
	if got := f.status(t, "fresh").Status; got != enums.TaskStatusRunning {
		t.Fatalf("expected fresh task running, got %s", got)
	}
}
