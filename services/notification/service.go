package notification

import (
	"context"
	"encoding/json"
	"time"

	"trustmarket/pkg/db/option"
	"trustmarket/pkg/errutil"
	"trustmarket/pkg/external"
	"trustmarket/pkg/rediskey"
	"trustmarket/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Service struct {
	db            *gorm.DB
	node          *snowflake.Node
	notifications repository.Repository[Notification]
	pub           publisher
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Node  *snowflake.Node
	Redis *redis.Client `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:            p.DB,
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
	}
	if p.Redis != nil {
		s.pub = p.Redis
	}
	return s
}

// Notify stores the message and fans it out on notifications:<userID>. Publish failures are logged only.
func (s *Service) Notify(ctx context.Context, userID, message string) error {
	_, err := s.Send(ctx, userID, message)
	return err
}

func (s *Service) Send(ctx context.Context, userID, message string) (*Notification, error) {
	n := &Notification{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		zap.L().Error("failed to store notification", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	if s.pub != nil {
		external.BestEffort(ctx, "notification.publish", func(ctx context.Context) (int64, error) {
			payload, err := json.Marshal(n)
			if err != nil {
				return 0, err
			}
			return s.pub.Publish(ctx, rediskey.BuildNotificationChannel(userID), payload).Result()
		}, external.ID("user_id", userID))
	}

	zap.L().Debug("notification sent", zap.String("user_id", userID), zap.String("notification_id", n.ID))
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]*Notification, error) {
	return s.notifications.Find(ctx, &Notification{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
	)
}

func (s *Service) MarkRead(ctx context.Context, notificationID, userID string) (*Notification, error) {
	n, err := s.notifications.FindOne(ctx, &Notification{ID: notificationID, UserID: userID})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errutil.NotFound("notification not found", nil,
			errutil.WithDetails(external.ID("notification_id", notificationID)))
	}
	if n.Read {
		return n, nil
	}

	if err := s.notifications.Update(ctx, n.ID, map[string]any{"is_read": true}); err != nil {
		return nil, err
	}
	n.Read = true
	return n, nil
}
