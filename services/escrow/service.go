package escrow

import (
	"context"
	"time"

	"trustmarket/pkg/chain"
	"trustmarket/pkg/db/option"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/external"
	"trustmarket/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	tx      *gorm.DB
	node    *snowflake.Node
	escrows repository.Repository[JobEscrow]
	chain   chain.Gateway
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Chain chain.Gateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		escrows: repository.ProvideStore[JobEscrow](p.DB),
		chain:   p.Chain,
	}
}

// WithTx binds escrow bookkeeping to an outer transaction.
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

// Lock locks amount on the escrow contract and records the lock reference. Failure is fatal.
func (s *Service) Lock(ctx context.Context, jobID string, chainRef int64, poster, worker string, amount int64) (*JobEscrow, error) {
	id := external.ID("job_id", jobID)
	if amount <= 0 {
		return nil, errutil.InvalidAmount("escrow amount must be positive", nil, errutil.WithDetails(id))
	}

	txHash, err := external.Fatal(ctx, "escrow.lock", func(ctx context.Context) (string, error) {
		return s.chain.LockEscrow(ctx, chainRef, poster, worker, amount)
	}, id)
	if err != nil {
		return nil, err
	}

	var out *JobEscrow
	err = s.transaction(ctx, func(tx *gorm.DB) error {
		repo := s.escrows.WithTrx(tx)
		existing, err := repo.FindOne(ctx, &JobEscrow{JobID: jobID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}

		now := time.Now()
		if existing != nil {
			if existing.Settled() {
				return errutil.InvalidState("escrow already settled", nil, errutil.WithDetails(id))
			}
			existing.LockTxHash = txHash
			existing.Amount = amount
			existing.UpdatedAt = now
			if err := repo.Update(ctx, existing.ID, map[string]any{
				"lock_tx_hash": txHash,
				"amount":       amount,
				"updated_at":   now,
			}); err != nil {
				return err
			}
			out = existing
			return nil
		}

		out = &JobEscrow{
			ID:         s.node.Generate().String(),
			JobID:      jobID,
			ChainRef:   chainRef,
			Amount:     amount,
			LockTxHash: txHash,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return repo.Create(ctx, out)
	})
	if err != nil {
		zap.L().Error("failed to record escrow lock", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	zap.L().Info("escrow locked", zap.String("job_id", jobID), zap.Int64("chain_ref", chainRef), zap.String("tx", txHash))
	return out, nil
}

// Release pays the locked funds out. A refunded escrow cannot be released.
func (s *Service) Release(ctx context.Context, jobID string) (*JobEscrow, error) {
	return s.settle(ctx, jobID, "escrow.release", "release_tx_hash", s.chain.ReleaseEscrow)
}

// Refund returns the locked funds to the poster. A released escrow cannot be refunded.
func (s *Service) Refund(ctx context.Context, jobID string) (*JobEscrow, error) {
	return s.settle(ctx, jobID, "escrow.refund", "refund_tx_hash", s.chain.RefundEscrow)
}

func (s *Service) settle(ctx context.Context, jobID, op, column string, call func(ctx context.Context, jobRef int64) (string, error)) (*JobEscrow, error) {
	id := external.ID("job_id", jobID)

	var out *JobEscrow
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		repo := s.escrows.WithTrx(tx)
		row, err := repo.FindOne(ctx, &JobEscrow{JobID: jobID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if row == nil {
			return errutil.NotFound("escrow not found", nil, errutil.WithDetails(id))
		}
		if row.ReleaseTxHash != nil {
			return errutil.InvalidState("escrow already released", nil, errutil.WithDetails(id))
		}
		if row.RefundTxHash != nil {
			return errutil.InvalidState("escrow already refunded", nil, errutil.WithDetails(id))
		}

		txHash, err := external.Fatal(ctx, op, func(ctx context.Context) (string, error) {
			return call(ctx, row.ChainRef)
		}, id)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := repo.Update(ctx, row.ID, map[string]any{column: txHash, "updated_at": now}); err != nil {
			return err
		}
		if column == "release_tx_hash" {
			row.ReleaseTxHash = &txHash
		} else {
			row.RefundTxHash = &txHash
		}
		row.UpdatedAt = now
		out = row
		return nil
	})
	if err != nil {
		zap.L().Error("failed to settle escrow", zap.String("job_id", jobID), zap.String("op", op), zap.Error(err))
		return nil, err
	}

	zap.L().Info("escrow settled", zap.String("job_id", jobID), zap.String("op", op))
	return out, nil
}

func (s *Service) Get(ctx context.Context, jobID string) (*JobEscrow, error) {
	db := s.db
	if s.tx != nil {
		db = s.tx
	}
	row, err := s.escrows.WithTrx(db).FindOne(ctx, &JobEscrow{JobID: jobID})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errutil.NotFound("escrow not found", nil, errutil.WithDetails(external.ID("job_id", jobID)))
	}
	return row, nil
}
