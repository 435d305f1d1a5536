package trust

import (
	"context"
	"time"

	"trustmarket/pkg/db/option"
	"trustmarket/pkg/metrics"
	"trustmarket/pkg/repository"
	"trustmarket/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MultiplierSource scales the raw event sum.
type MultiplierSource interface {
	GetMultiplier(ctx context.Context, userID string) (float64, error)
}

// ScoreObserver receives every recalculated score.
type ScoreObserver interface {
	HandleScoreChange(ctx context.Context, userID string, score int64) error
}

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	events    repository.Repository[TrustEvent]
	snapshots repository.Repository[TrustSnapshot]

	multiplier MultiplierSource
	observer   ScoreObserver
	overlay    Overlay
}

type ServiceParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Multiplier MultiplierSource `optional:"true"`
	Observer   ScoreObserver    `optional:"true"`
	Overlay    Overlay          `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:         p.DB,
		node:       p.Node,
		events:     repository.ProvideStore[TrustEvent](p.DB),
		snapshots:  repository.ProvideStore[TrustSnapshot](p.DB),
		multiplier: p.Multiplier,
		observer:   p.Observer,
		overlay:    p.Overlay,
	}
}

// RecordEvent appends a delta and returns the freshly recalculated score.
func (s *Service) RecordEvent(ctx context.Context, userID, source string, delta int64) (int64, error) {
	if _, err := user.Load(ctx, s.db, userID); err != nil {
		return 0, err
	}

	if err := s.events.Create(ctx, &TrustEvent{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Source:    source,
		Delta:     delta,
		CreatedAt: time.Now(),
	}); err != nil {
		zap.L().Error("failed to append trust event", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}

	return s.Recalculate(ctx, userID)
}

// Recalculate re-derives the score from the full event log, persists it with a snapshot and
// forwards it to the observer before returning.
func (s *Service) Recalculate(ctx context.Context, userID string) (int64, error) {
	zapLog := zap.L().With(zap.String("user_id", userID))

	if _, err := user.Load(ctx, s.db, userID); err != nil {
		return 0, err
	}

	var agg struct {
		Total int64
		Count int64
	}
	if err := s.db.WithContext(ctx).Model(&TrustEvent{}).
		Select("COALESCE(SUM(delta), 0) AS total, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Scan(&agg).Error; err != nil {
		zapLog.Error("failed to sum trust events", zap.Error(err))
		return 0, err
	}

	multiplier := 1.0
	if s.multiplier != nil {
		m, err := s.multiplier.GetMultiplier(ctx, userID)
		if err != nil {
			return 0, err
		}
		multiplier = m
	}

	score := ComputeScore(agg.Total, multiplier)
	attrs := map[string]any{"events": agg.Count, "multiplier": multiplier}
	if s.overlay != nil {
		if adj, ok := s.overlay.Adjust(ctx, userID, OverlayInput{Score: score, Events: agg.Count, Raw: agg.Total}); ok {
			score = Clamp(score + adj)
			attrs["overlay"] = adj
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user.User{}).Where("id = ?", userID).
			Updates(map[string]any{"trust_score": score, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		return s.snapshots.WithTrx(tx).Create(ctx, &TrustSnapshot{
			ID:        s.node.Generate().String(),
			UserID:    userID,
			Score:     score,
			Metadata:  SnapshotMetadata(SnapshotRecalculated, attrs),
			CreatedAt: time.Now(),
		})
	})
	if err != nil {
		zapLog.Error("failed to persist trust score", zap.Error(err))
		return 0, err
	}
	metrics.TrustRecalculations.Inc()

	if s.observer != nil {
		if err := s.observer.HandleScoreChange(ctx, userID, score); err != nil {
			zapLog.Error("failed to propagate score change", zap.Error(err))
			return 0, err
		}
	}

	zapLog.Debug("trust score recalculated", zap.Int64("events", agg.Count))
	return score, nil
}

// GetScore reads the cached score, 0 for unknown users.
func (s *Service) GetScore(ctx context.Context, userID string) (int64, error) {
	u, err := user.Find(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, nil
	}
	return u.TrustScore, nil
}

func (s *Service) ListEvents(ctx context.Context, userID string) ([]*TrustEvent, error) {
	return s.events.Find(ctx, &TrustEvent{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}

func (s *Service) ListSnapshots(ctx context.Context, userID string) ([]*TrustSnapshot, error) {
	return s.snapshots.Find(ctx, &TrustSnapshot{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}
