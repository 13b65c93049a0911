package scheduler

import (
	"context"
	"errors"

	"ai-tutor-backend/internal/queue"

	"github.com/hibiken/asynq"
)

const ReembedBackfillTag = "reembed-backfill"

// ScheduleReembedBackfill periodically queues an only-missing re-embedding run
// so resources whose embedding failed at create time catch up.
func ScheduleReembedBackfill(s *Scheduler, cronExpr string, q queue.Enqueuer) error {
	return s.ScheduleCron(ReembedBackfillTag, cronExpr, reembedBackfillJob(q))
}

func reembedBackfillJob(q queue.Enqueuer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := queue.EnqueueReembed(ctx, q, queue.ReembedPayload{OnlyMissing: true, RequestedBy: "scheduler"})
		if errors.Is(err, asynq.ErrDuplicateTask) {
			// previous run still queued
			return nil
		}
		return err
	}
}
