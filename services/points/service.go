package points

import (
	"context"
	"time"

	"trustmarket/pkg/config"
	"trustmarket/pkg/db/option"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/metrics"
	"trustmarket/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultDailyCap   int64   = 50
	DefaultMultiplier float64 = 1
)

type Service struct {
	db      *gorm.DB
	tx      *gorm.DB
	node    *snowflake.Node
	balance repository.Repository[PointsBalance]

	dailyCap   int64
	multiplier float64
	loc        *time.Location
	now        func() time.Time
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:         p.DB,
		node:       p.Node,
		balance:    repository.ProvideStore[PointsBalance](p.DB),
		dailyCap:   DefaultDailyCap,
		multiplier: DefaultMultiplier,
		loc:        time.UTC,
		now:        time.Now,
	}

	if p.Config != nil {
		if p.Config.Points.DailyCap > 0 {
			s.dailyCap = p.Config.Points.DailyCap
		}
		if p.Config.Points.Multiplier > 0 {
			s.multiplier = p.Config.Points.Multiplier
		}
		s.loc = p.Config.Location()
	}

	return s
}

// WithTx binds the ledger to an outer transaction so a debit commits or rolls back with the caller.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	clone := *s
	clone.tx = tx
	return &clone
}

func (s *Service) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// ensure inserts the zero balance row when absent and returns it locked for update.
func (s *Service) ensure(ctx context.Context, tx *gorm.DB, userID string) (*PointsBalance, error) {
	if userID == "" {
		return nil, errutil.BadRequest("user id is required", nil)
	}
	now := s.now()
	row := &PointsBalance{
		ID:                    s.node.Generate().String(),
		UserID:                userID,
		DailyEarnedCheckpoint: now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}

	current, err := s.balance.WithTrx(tx).FindOne(ctx, nil,
		option.ApplyOperator(option.Condition{Field: "user_id", Operator: option.EQ, Value: userID}),
		option.WithLockingUpdate(),
	)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errutil.Internal("points balance missing after ensure", nil)
	}
	return current, nil
}

func (s *Service) sameDay(a, b time.Time) bool {
	return a.In(s.loc).Format(time.DateOnly) == b.In(s.loc).Format(time.DateOnly)
}

// Reward credits up to the remaining daily allowance. A zero credit leaves the balance untouched
// but still persists a calendar-day rollover.
func (s *Service) Reward(ctx context.Context, userID string, amount int64, reason string) (*RewardResult, error) {
	zapLog := zap.L().With(zap.String("user_id", userID), zap.String("reason", reason))

	var result RewardResult
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		row, err := s.ensure(ctx, tx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		dailyEarned := row.DailyEarned
		checkpoint := row.DailyEarnedCheckpoint
		rolled := !s.sameDay(checkpoint, now)
		if rolled {
			dailyEarned = 0
			checkpoint = now
		}

		credited := min(max(0, s.dailyCap-dailyEarned), amount)
		if credited <= 0 {
			result = RewardResult{Credited: 0, Balance: row.Balance}
			if !rolled {
				return nil
			}
			return s.balance.WithTrx(tx).Update(ctx, row.ID, map[string]any{
				"daily_earned":            int64(0),
				"daily_earned_checkpoint": checkpoint,
				"updated_at":              now,
			})
		}

		updates := map[string]any{
			"balance":                 row.Balance + credited,
			"daily_earned":            dailyEarned + credited,
			"daily_earned_checkpoint": checkpoint,
			"last_reason":             reason,
			"updated_at":              now,
		}
		if err := s.balance.WithTrx(tx).Update(ctx, row.ID, updates); err != nil {
			return err
		}

		result = RewardResult{Credited: credited, Balance: row.Balance + credited}
		return nil
	})
	if err != nil {
		zapLog.Error("failed to reward points", zap.Error(err))
		return nil, err
	}

	if result.Credited > 0 {
		metrics.PointsCredited.WithLabelValues(reason).Add(float64(result.Credited))
	}
	return &result, nil
}

// Spend debits amount, rejecting non-positive amounts and overdrafts.
func (s *Service) Spend(ctx context.Context, userID string, amount int64, memo string) (int64, error) {
	details := errutil.WithDetails(errutil.Detail{Field: "user_id", Message: userID})
	if amount <= 0 {
		return 0, errutil.InvalidAmount("amount must be positive", nil, details)
	}

	var balance int64
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		row, err := s.ensure(ctx, tx, userID)
		if err != nil {
			return err
		}

		if row.Balance < amount {
			return errutil.InsufficientBalance("insufficient points balance", nil, details)
		}

		balance = row.Balance - amount
		return s.balance.WithTrx(tx).Update(ctx, row.ID, map[string]any{
			"balance":     balance,
			"last_reason": memo,
			"updated_at":  s.now(),
		})
	})
	if err != nil {
		if !errutil.Is(err, errutil.StatusInsufficientBalance) {
			zap.L().Error("failed to spend points", zap.String("user_id", userID), zap.String("memo", memo), zap.Error(err))
		}
		return 0, err
	}

	metrics.PointsSpent.WithLabelValues(memo).Add(float64(amount))
	return balance, nil
}

func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		row, err := s.ensure(ctx, tx, userID)
		if err != nil {
			return err
		}
		balance = row.Balance
		return nil
	})
	return balance, err
}

// GetMultiplier returns the trust scaling factor for userID. It is uniform across users today.
func (s *Service) GetMultiplier(ctx context.Context, userID string) (float64, error) {
	return s.multiplier, nil
}
