package badge

import (
	"context"
	"time"

	"trustmarket/pkg/chain"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/external"
	"trustmarket/pkg/repository"
	"trustmarket/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	tokens repository.Repository[BadgeToken]
	chain  chain.Gateway
	now    func() time.Time
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Chain chain.Gateway
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		tokens: repository.ProvideStore[BadgeToken](p.DB),
		chain:  p.Chain,
		now:    time.Now,
	}
}

// MintOrUpdate mints the badge on first use and rewrites its tier afterwards.
// New token ids are the mint time in unix seconds.
func (s *Service) MintOrUpdate(ctx context.Context, userID string, tier string) (string, error) {
	zapLog := zap.L().With(zap.String("user_id", userID), zap.String("tier", tier))

	existing, err := s.tokens.FindOne(ctx, &BadgeToken{UserID: userID})
	if err != nil {
		return "", err
	}

	if existing != nil {
		txHash, err := s.chain.UpdateBadge(ctx, existing.TokenID, tier, chain.BadgeUpdate, "")
		if err != nil {
			return "", err
		}
		if err := s.tokens.Update(ctx, existing.ID, map[string]any{
			"tier":         tier,
			"last_tx_hash": txHash,
			"updated_at":   s.now(),
		}); err != nil {
			return "", err
		}
		zapLog.Info("badge updated", zap.Int64("token_id", existing.TokenID))
		return txHash, nil
	}

	u, err := user.Load(ctx, s.db, userID)
	if err != nil {
		return "", err
	}
	if u.Wallet() == "" {
		return "", errutil.BadRequest("wallet address required to mint badge", nil,
			errutil.WithDetails(external.ID("user_id", userID)))
	}

	now := s.now()
	tokenID := now.Unix()
	txHash, err := s.chain.UpdateBadge(ctx, tokenID, tier, chain.BadgeMint, u.Wallet())
	if err != nil {
		return "", err
	}

	if err := s.tokens.Create(ctx, &BadgeToken{
		ID:         s.node.Generate().String(),
		UserID:     userID,
		TokenID:    tokenID,
		Tier:       tier,
		LastTxHash: txHash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return "", err
	}

	zapLog.Info("badge minted", zap.Int64("token_id", tokenID))
	return txHash, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*BadgeToken, error) {
	token, err := s.tokens.FindOne(ctx, &BadgeToken{UserID: userID})
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, errutil.NotFound("badge not found", nil, errutil.WithDetails(external.ID("user_id", userID)))
	}
	return token, nil
}
