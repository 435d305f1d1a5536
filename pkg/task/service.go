package task

import (
	"context"
	"fmt"
	"time"

	"trustmarket/pkg/metrics"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer hands background work to the queue. Callers own retry policy through asynq options.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) Enqueuer {
	return &enqueuer{client: client}
}

func (e *enqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	metrics.TasksEnqueued.WithLabelValues(task.Type(), metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	zap.L().Debug("task enqueued",
		zap.String("task_type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return info, nil
}

// Observe wraps every handler on the mux with latency metrics and a failure log line.
func Observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		metrics.TaskDuration.WithLabelValues(t.Type(), metrics.Result(err)).Observe(time.Since(start).Seconds())

		if err != nil {
			taskID, _ := asynq.GetTaskID(ctx)
			retried, _ := asynq.GetRetryCount(ctx)
			zap.L().Warn("task handler failed",
				zap.String("task_type", t.Type()),
				zap.String("task_id", taskID),
				zap.Int("retry", retried),
				zap.Error(err),
			)
		}
		return err
	})
}
