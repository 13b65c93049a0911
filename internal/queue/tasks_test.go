package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"ai-tutor-backend/internal/ai"
	"ai-tutor-backend/internal/store/memstore"
	"ai-tutor-backend/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default", Type: task.Type()}, nil
}

func TestEnqueueReembed(t *testing.T) {
	q := &recordingEnqueuer{}
	info, err := EnqueueReembed(context.Background(), q, ReembedPayload{OnlyMissing: true, RequestedBy: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "task-1", info.ID)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, TaskReembedResources, q.tasks[0].Type())
	var p ReembedPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.True(t, p.OnlyMissing)

	q.err = asynq.ErrDuplicateTask
	_, err = EnqueueReembed(context.Background(), q, ReembedPayload{})
	assert.ErrorIs(t, err, asynq.ErrDuplicateTask)
}

func TestProcessReembed(t *testing.T) {
	emb := ai.NewStaticEmbedder(3, nil)
	s := memstore.New(emb, 0)
	ctx := context.Background()
	id, err := s.Resources().Create(ctx, models.Resource{Name: "Heaps", Description: "Priority queues", Slug: "heaps"})
	require.NoError(t, err)

	p := NewTaskProcessor(s.Resources())

	task, err := NewReembedTask(ReembedPayload{})
	require.NoError(t, err)
	require.NoError(t, p.ProcessReembed(ctx, task))
	assert.Len(t, emb.Calls(), 2)

	task, err = NewReembedTask(ReembedPayload{ResourceID: id})
	require.NoError(t, err)
	require.NoError(t, p.ProcessReembed(ctx, task))
	assert.Len(t, emb.Calls(), 3)
}

func TestProcessReembed_PermanentFailuresSkipRetry(t *testing.T) {
	p := NewTaskProcessor(memstore.New(ai.NewStaticEmbedder(3, nil), 0).Resources())

	err := p.ProcessReembed(context.Background(), asynq.NewTask(TaskReembedResources, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := NewReembedTask(ReembedPayload{ResourceID: "not-an-id"})
	require.NoError(t, err)
	err = p.ProcessReembed(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessReembed_FailuresAreRetried(t *testing.T) {
	emb := ai.NewStaticEmbedder(3, nil)
	s := memstore.New(emb, 0)
	_, err := s.Resources().Create(context.Background(), models.Resource{Name: "A", Description: "B", Slug: "ab"})
	require.NoError(t, err)
	emb.Strict = true

	task, err := NewReembedTask(ReembedPayload{})
	require.NoError(t, err)
	err = NewTaskProcessor(s.Resources()).ProcessReembed(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
