package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

const defaultClaimTTL = 5 * time.Minute

type stuckTaskRepo interface {
	FailStuck(ctx context.Context, claimedBefore, now time.Time) (int64, error)
}

type StuckTaskJobParams struct {
	Logger     *logger.Logger
	Repository stuckTaskRepo
	ClaimTTL   time.Duration
}

// NewStuckTaskJob builds the job that fails deferred tasks whose worker died
// mid-run. Those tasks are never retried.
func NewStuckTaskJob(params StuckTaskJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("task repository required")
	}
	ttl := params.ClaimTTL
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &stuckTaskJob{
		logg:     params.Logger,
		repo:     params.Repository,
		claimTTL: ttl,
		now:      time.Now,
	}, nil
}

type stuckTaskJob struct {
	logg     *logger.Logger
	repo     stuckTaskRepo
	claimTTL time.Duration
	now      func() time.Time
}

func (j *stuckTaskJob) Name() string { return "stuck-task-sweep" }

func (j *stuckTaskJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.claimTTL)
	failed, err := j.repo.FailStuck(ctx, cutoff, now)
	if err != nil {
		return fmt.Errorf("stuck task sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"tasks_failed": failed,
	})
	if failed > 0 {
		j.logg.Warn(logCtx, "failed deferred tasks with expired claims")
		return nil
	}
	j.logg.Debug(logCtx, "stuck task sweep complete")
	return nil
}
