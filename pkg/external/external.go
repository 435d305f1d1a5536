// Package external classifies calls to collaborators outside the process
// (ledger contracts, prover, badge issuer, notification sink) as fatal or best-effort.
package external

import (
	"context"
	"errors"

	"trustmarket/pkg/errutil"

	"go.uber.org/zap"
)

type Outcome int

const (
	OK Outcome = iota
	Degraded
)

func (o Outcome) String() string {
	if o == Degraded {
		return "degraded"
	}
	return "ok"
}

// Result is the outcome of a best-effort call. Value is the zero value when Degraded.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

func (r Result[T]) Degraded() bool {
	return r.Outcome == Degraded
}

// Fatal runs fn and converts a failure into an EXTERNAL_FAILURE error carrying the details.
// Domain errors returned by fn pass through untouched.
func Fatal[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error), details ...errutil.Detail) (T, error) {
	v, err := fn(ctx)
	if err == nil {
		return v, nil
	}

	var zero T
	var domain errutil.BaseError
	if errors.As(err, &domain) {
		return zero, err
	}

	zap.L().With(fields(op, details)...).Error("external call failed", zap.Error(err))
	return zero, errutil.ExternalFailure(op+" failed", err, errutil.WithDetails(details...))
}

// BestEffort runs fn and absorbs any failure into a Degraded result after logging it.
func BestEffort[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error), details ...errutil.Detail) Result[T] {
	v, err := fn(ctx)
	if err != nil {
		zap.L().With(fields(op, details)...).Warn("best-effort external call degraded", zap.Error(err))
		return Result[T]{Outcome: Degraded, Err: err}
	}
	return Result[T]{Value: v, Outcome: OK}
}

func fields(op string, details []errutil.Detail) []zap.Field {
	out := make([]zap.Field, 0, len(details)+1)
	out = append(out, zap.String("op", op))
	for _, d := range details {
		out = append(out, zap.String(d.Field, d.Message))
	}
	return out
}

// ID is a shorthand for an entity id detail.
func ID(field, value string) errutil.Detail {
	return errutil.Detail{Field: field, Message: value}
}
