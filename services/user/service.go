package user

import (
	"context"
	"strings"
	"time"

	"trustmarket/pkg/errutil"
	"trustmarket/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	users repository.Repository[User]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		users: repository.ProvideStore[User](p.DB),
	}
}

// Register creates a participant record. Tier starts at Dust and score at 0.
func (s *Service) Register(ctx context.Context, walletAddress string) (*User, error) {
	u := &User{
		ID:        s.node.Generate().String(),
		Tier:      "Dust",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if w := strings.TrimSpace(walletAddress); w != "" {
		u.WalletAddress = &w
	}

	if err := s.users.Create(ctx, u); err != nil {
		zap.L().Error("failed to create user", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return Load(ctx, s.db, userID)
}

// Load reads a user through db (which may be a transaction) and fails NotFound when missing.
func Load(ctx context.Context, db *gorm.DB, userID string) (*User, error) {
	u, err := Find(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", nil, errutil.WithDetails(errutil.Detail{Field: "user_id", Message: userID}))
	}
	return u, nil
}

// Find reads a user through db and returns nil when missing.
func Find(ctx context.Context, db *gorm.DB, userID string) (*User, error) {
	if userID == "" {
		return nil, nil
	}
	return repository.ProvideStore[User](db).FindOne(ctx, &User{ID: userID})
}

// LinkWallet stores the payout address used for escrow release.
func (s *Service) LinkWallet(ctx context.Context, userID, walletAddress string) (*User, error) {
	w := strings.TrimSpace(walletAddress)
	if w == "" {
		return nil, errutil.BadRequest("wallet address is required", nil)
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, userID, map[string]any{"wallet_address": w, "updated_at": time.Now()}); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID)
}
