package tier

import (
	"context"
	"fmt"
	"time"

	"trustmarket/pkg/db/option"
	"trustmarket/pkg/external"
	"trustmarket/pkg/metrics"
	"trustmarket/pkg/repository"
	"trustmarket/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// BadgeIssuer mints or updates the soul-bound tier badge.
type BadgeIssuer interface {
	MintOrUpdate(ctx context.Context, userID string, tier string) (string, error)
}

// ProofRequester queues proof pre-issuance for a new score.
type ProofRequester interface {
	RequestIssuance(ctx context.Context, userID string, minScore int64) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	history repository.Repository[TierHistory]

	badges   BadgeIssuer
	proofs   ProofRequester
	notifier Notifier
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Badges   BadgeIssuer    `optional:"true"`
	Proofs   ProofRequester `optional:"true"`
	Notifier Notifier       `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		history:  repository.ProvideStore[TierHistory](p.DB),
		badges:   p.Badges,
		proofs:   p.Proofs,
		notifier: p.Notifier,
	}
}

// HandleScoreChange commits a tier transition together with its history row, then dispatches
// badge, proof and notification side effects. Side effects never fail the transition.
func (s *Service) HandleScoreChange(ctx context.Context, userID string, score int64) error {
	target := Resolve(score)

	var previous Tier
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := user.Find(ctx, tx.Scopes(option.LockingUpdate), userID)
		if err != nil {
			return err
		}
		if u == nil || Tier(u.Tier) == target {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&user.User{}).Where("id = ?", userID).
			Updates(map[string]any{"tier": string(target), "updated_at": now}).Error; err != nil {
			return err
		}

		if err := s.history.WithTrx(tx).Create(ctx, &TierHistory{
			ID:        s.node.Generate().String(),
			UserID:    userID,
			Tier:      target,
			Score:     score,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		previous = Tier(u.Tier)
		changed = true
		return nil
	})
	if err != nil {
		zap.L().Error("failed to commit tier transition", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if !changed {
		return nil
	}

	metrics.TierTransitions.WithLabelValues(string(target)).Inc()
	zap.L().Info("tier transition committed",
		zap.String("user_id", userID),
		zap.String("from", string(previous)),
		zap.String("to", string(target)),
	)

	s.dispatch(ctx, userID, previous, target, score)
	return nil
}

// dispatch runs the post-commit side effects concurrently; each one absorbs its own failure.
func (s *Service) dispatch(ctx context.Context, userID string, previous, target Tier, score int64) {
	id := external.ID("user_id", userID)

	var g errgroup.Group
	if s.badges != nil {
		g.Go(func() error {
			res := external.BestEffort(ctx, "badge.mint_or_update", func(ctx context.Context) (string, error) {
				return s.badges.MintOrUpdate(ctx, userID, string(target))
			}, id)
			if res.Degraded() {
				metrics.SideEffectFailures.WithLabelValues("badge").Inc()
			}
			return nil
		})
	}
	if s.proofs != nil {
		g.Go(func() error {
			res := external.BestEffort(ctx, "proof.request_issuance", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.proofs.RequestIssuance(ctx, userID, score)
			}, id)
			if res.Degraded() {
				metrics.SideEffectFailures.WithLabelValues("proof").Inc()
			}
			return nil
		})
	}
	if s.notifier != nil {
		g.Go(func() error {
			res := external.BestEffort(ctx, "notification.notify", func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.notifier.Notify(ctx, userID, transitionMessage(previous, target))
			}, id)
			if res.Degraded() {
				metrics.SideEffectFailures.WithLabelValues("notify").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func transitionMessage(previous, target Tier) string {
	if Rank(target) < Rank(previous) {
		return fmt.Sprintf("Tier changed to %s", target)
	}
	return fmt.Sprintf("Tier upgraded to %s", target)
}

// GetTier returns the cached tier (Dust for unknown users) and the transition history, newest first.
func (s *Service) GetTier(ctx context.Context, userID string) (*TierView, error) {
	view := &TierView{Tier: Dust, History: []*TierHistory{}}

	u, err := user.Find(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if u != nil && u.Tier != "" {
		view.Tier = Tier(u.Tier)
	}

	history, err := s.history.Find(ctx, &TierHistory{UserID: userID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
		Allow:   map[string]bool{"created_at": true},
	}))
	if err != nil {
		return nil, err
	}
	if history != nil {
		view.History = history
	}

	return view, nil
}
