package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
	"github.com/angelmondragon/bundlehub-backend/pkg/metrics"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 50
	maxBackoff       = 30 * time.Second
	jitterWindow     = 250 * time.Millisecond
)

// ErrDrop tells the dispatcher the task has nothing left to do. Handlers wrap
// it with a reason; the task is marked dropped instead of failed.
var ErrDrop = errors.New("task dropped")

// Handler executes one claimed task.
type Handler func(ctx context.Context, task models.DeferredTask) error

// DispatcherParams wires a Dispatcher.
type DispatcherParams struct {
	Repo      Repository
	Logger    *logger.Logger
	Metrics   *metrics.TaskMetrics
	Interval  time.Duration
	BatchSize int
	Now       func() time.Time
}

// Dispatcher polls for due tasks and runs their handlers exactly once.
type Dispatcher struct {
	repo      Repository
	logg      *logger.Logger
	metrics   *metrics.TaskMetrics
	interval  time.Duration
	batchSize int
	now       func() time.Time

	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		repo:      params.Repo,
		logg:      params.Logger,
		metrics:   params.Metrics,
		interval:  interval,
		batchSize: batch,
		now:       now,
		handlers:  map[string]Handler{},
	}, nil
}

// Register binds a handler to a task kind. A kind may only be registered once.
func (d *Dispatcher) Register(kind string, handler Handler) error {
	if kind == "" || handler == nil {
		return fmt.Errorf("task kind and handler are required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[kind]; exists {
		return fmt.Errorf("handler already registered for %q", kind)
	}
	d.handlers[kind] = handler
	return nil
}

func (d *Dispatcher) handler(kind string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[kind]
	return h, ok
}

// Run polls until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logg.Info(d.logg.WithField(ctx, "interval", d.interval.String()), "task dispatcher started")
	backoff := d.interval

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "task dispatcher context canceled")
			return ctx.Err()
		default:
		}

		ran, err := d.RunOnce(ctx)
		if err != nil {
			d.logg.Error(ctx, "task dispatcher batch error", err)
			backoff = nextBackoff(backoff, d.interval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = d.interval

		if ran >= d.batchSize {
			continue
		}
		if err := sleep(ctx, withJitter(d.interval)); err != nil {
			return err
		}
	}
}

// RunOnce executes every task due now, up to the batch size, and returns how
// many it claimed. Bookkeeping errors are aggregated; handler errors are
// recorded on the task and never returned.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.repo.ListDue(ctx, d.now(), d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	var (
		claimed int
		errs    error
	)
	for _, task := range due {
		won, err := d.repo.Claim(ctx, task.ID, d.now())
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("claim task %s: %w", task.TaskKey, err))
			continue
		}
		if !won {
			d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeSkipped)
			continue
		}
		claimed++
		d.metrics.ObserveStartLag(task.Kind, d.now().Sub(task.RunAt))

		status, lastErr := d.execute(ctx, task)
		var msg *string
		if lastErr != nil {
			text := lastErr.Error()
			msg = &text
		}
		if err := d.repo.Finish(ctx, task.ID, status, msg, d.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("finish task %s: %w", task.TaskKey, err))
		}
	}
	return claimed, errs
}

func (d *Dispatcher) execute(ctx context.Context, task models.DeferredTask) (status enums.TaskStatus, err error) {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"task_id":  task.ID.String(),
		"task_key": task.TaskKey,
		"kind":     task.Kind,
	})

	handler, ok := d.handler(task.Kind)
	if !ok {
		err = fmt.Errorf("no handler registered for %q", task.Kind)
		d.logg.Error(logCtx, "task has no handler", err)
		d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeFailed)
		return enums.TaskStatusFailed, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			status = enums.TaskStatusFailed
			d.logg.Error(logCtx, "task panicked", err)
			d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeFailed)
		}
	}()

	err = handler(logCtx, task)
	switch {
	case err == nil:
		d.logg.Info(logCtx, "task done")
		d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeDone)
		return enums.TaskStatusDone, nil
	case errors.Is(err, ErrDrop):
		d.logg.Info(d.logg.WithField(logCtx, "reason", err.Error()), "task dropped")
		d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeDropped)
		return enums.TaskStatusDropped, err
	default:
		d.logg.Error(logCtx, "task failed", err)
		d.metrics.IncOutcome(task.Kind, metrics.TaskOutcomeFailed)
		return enums.TaskStatusFailed, err
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(rand.Int64N(int64(jitterWindow)))
}
