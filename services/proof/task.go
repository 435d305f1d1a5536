package proof

import (
	"context"
	"encoding/json"
	"fmt"

	"trustmarket/pkg/errutil"
	"trustmarket/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type IssuePayload struct {
	UserID   string `json:"user_id"`
	MinScore int64  `json:"min_score"`
}

func NewIssueTask(p IssuePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.ProofIssue, payload,
		asynq.Queue(taskname.QueueDefault),
		asynq.MaxRetry(5),
	), nil
}

type Task struct {
	svc *Service
}

type TaskParams struct {
	fx.In
	Service *Service
}

func NewTask(p TaskParams) *Task {
	return &Task{svc: p.Service}
}

// HandleIssueTask pre-issues a proof for a requested threshold. A score that has since
// dropped below the threshold is not retried.
func (t *Task) HandleIssueTask(ctx context.Context, task *asynq.Task) error {
	var payload IssuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", task.Type()),
		zap.String("user_id", payload.UserID),
	)

	res, err := t.svc.IssueForUser(ctx, payload.UserID, payload.MinScore)
	if err != nil {
		if errutil.Is(err, errutil.StatusUnauthorized) || errutil.Is(err, errutil.StatusNotFound) {
			zapLog.Warn("skipping proof pre-issue", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		zapLog.Error("proof pre-issue failed", zap.Error(err))
		return err
	}

	zapLog.Info("proof pre-issued", zap.String("proof_id", res.ProofID))
	return nil
}

func RegisterHandlers(mux *asynq.ServeMux, t *Task) {
	mux.HandleFunc(taskname.ProofIssue, t.HandleIssueTask)
}
