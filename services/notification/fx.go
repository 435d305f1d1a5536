package notification

import (
	"trustmarket/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	db.Models(&Notification{}),
	fx.Provide(NewService),
)
