package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/angelmondragon/bundlehub-backend/pkg/db"
	"github.com/angelmondragon/bundlehub-backend/pkg/db/models"
	"github.com/angelmondragon/bundlehub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// ErrDuplicateTask reports that a task with the same key is still queued,
// running or already done.
var ErrDuplicateTask = errors.New("task already scheduled")

// Scheduler queues one-shot tasks for the dispatcher.
type Scheduler interface {
	Schedule(ctx context.Context, key, kind string, runAt time.Time, payload any) error
}

type scheduler struct {
	repo Repository
	logg *logger.Logger
}

// NewScheduler builds a scheduler writing through repo.
func NewScheduler(repo Repository, logg *logger.Logger) (Scheduler, error) {
	if repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	return &scheduler{repo: repo, logg: logg}, nil
}

func (s *scheduler) Schedule(ctx context.Context, key, kind string, runAt time.Time, payload any) error {
	key = strings.TrimSpace(key)
	kind = strings.TrimSpace(kind)
	if key == "" || kind == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "task key and kind are required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode task payload")
	}

	task := &models.DeferredTask{
		TaskKey: key,
		Kind:    kind,
		RunAt:   runAt.UTC(),
		Payload: datatypes.JSON(raw),
		Status:  enums.TaskStatusPending,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		if !db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "schedule task")
		}
		// a key whose last run was dropped or failed can be queued again
		rearmed, rerr := s.repo.Rearm(ctx, task, time.Now().UTC())
		if rerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, rerr, "rearm task")
		}
		if !rearmed {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, ErrDuplicateTask, "task already scheduled").
				WithDetails(map[string]any{"taskKey": key})
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"task_key": key,
			"kind":     kind,
			"run_at":   task.RunAt,
		})
		s.logg.Debug(logCtx, "task scheduled")
	}
	return nil
}

// DecodePayload unmarshals a task payload into dst.
func DecodePayload(task models.DeferredTask, dst any) error {
	if len(task.Payload) == 0 {
		return fmt.Errorf("task %s has no payload", task.TaskKey)
	}
	return json.Unmarshal(task.Payload, dst)
}
