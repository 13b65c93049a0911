package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-tutor-backend/internal/logger"
	"ai-tutor-backend/internal/store"

	"github.com/hibiken/asynq"
)

const (
	TaskReembedResources = "resources:reembed"

	// reembedUniqueWindow collapses repeated requests for the same run.
	reembedUniqueWindow = 5 * time.Minute
)

type ReembedPayload struct {
	// ResourceID limits the run to one resource when set.
	ResourceID  string `json:"resource_id,omitempty"`
	OnlyMissing bool   `json:"only_missing"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Task creators
func NewReembedTask(p ReembedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReembedResources,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("default"),
		asynq.Unique(reembedUniqueWindow),
	), nil
}

// EnqueueReembed schedules a re-embedding run. A run with the same payload
// already waiting yields asynq.ErrDuplicateTask.
func EnqueueReembed(ctx context.Context, q Enqueuer, p ReembedPayload) (*asynq.TaskInfo, error) {
	task, err := NewReembedTask(p)
	if err != nil {
		return nil, err
	}
	info, err := q.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", TaskReembedResources, err)
	}
	logger.Info("Re-embedding queued", "task_id", info.ID, "queue", info.Queue,
		"only_missing", p.OnlyMissing, "resource_id", p.ResourceID)
	return info, nil
}

// Task handlers
type TaskProcessor struct {
	resources store.ResourceRepository
}

func NewTaskProcessor(resources store.ResourceRepository) *TaskProcessor {
	return &TaskProcessor{resources: resources}
}

func (p *TaskProcessor) ProcessReembed(ctx context.Context, t *asynq.Task) error {
	var payload ReembedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	if payload.ResourceID != "" {
		found, err := p.resources.ReembedOne(ctx, payload.ResourceID)
		if errors.Is(err, store.ErrInvalidID) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err != nil {
			return err
		}
		if !found {
			logger.Warn("Re-embed target not found", "resource_id", payload.ResourceID)
		}
		return nil
	}

	report, err := p.resources.Reembed(ctx, store.ReembedOptions{OnlyMissing: payload.OnlyMissing})
	if w := t.ResultWriter(); w != nil {
		if b, mErr := json.Marshal(report); mErr == nil {
			_, _ = w.Write(b)
		}
	}
	return err
}
