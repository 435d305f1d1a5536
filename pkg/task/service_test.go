package task

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestObservePassesThroughResult(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	h := Observe(asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		calls++
		if string(task.Payload()) == "fail" {
			return boom
		}
		return nil
	}))

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask("proof:issue", []byte("ok"))))
	require.ErrorIs(t, h.ProcessTask(context.Background(), asynq.NewTask("proof:issue", []byte("fail"))), boom)
	require.Equal(t, 2, calls)
}
